package objectstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MemoryAPI is an in-memory API implementation for tests.
type MemoryAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	// PageSize caps ListObjectsV2 results; zero means unlimited.
	PageSize int
	ListErr  error
	GetErr   error
	// ListCalls counts ListObjectsV2 invocations.
	ListCalls int
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{objects: map[string][]byte{}}
}

func (m *MemoryAPI) Put(key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
}

func (m *MemoryAPI) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	prefix := aws.ToString(params.Prefix)
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	limit := m.PageSize
	if params.MaxKeys != nil && (limit == 0 || int(*params.MaxKeys) < limit) {
		limit = int(*params.MaxKeys)
	}
	truncated := false
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
		truncated = true
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated), KeyCount: aws.Int32(int32(len(keys)))}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (m *MemoryAPI) GetObject(
	_ context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	body, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}
