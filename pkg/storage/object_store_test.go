package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xralks/Bancodealimentos/pkg/config"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	deleted string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = aws.ToString(params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	client := &fakeS3{}
	store := newS3Store(client, "avatars", "https://avatars.s3.sa-east-1.amazonaws.com/")

	link, err := store.Put(context.Background(), "user 1/a.jpg", "image/jpeg", strings.NewReader("jpg"), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://avatars.s3.sa-east-1.amazonaws.com/user%201/a.jpg", link)
	assert.Equal(t, "avatars", aws.ToString(client.put.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(client.put.ContentType))
	assert.Equal(t, "jpg", client.body)
	assert.Equal(t, "user 1/a.jpg", KeyFromURL(store, link))
}

func TestS3StoreErrors(t *testing.T) {
	store := newS3Store(&fakeS3{err: errors.New("denied")}, "avatars", "https://cdn")
	_, err := store.Put(context.Background(), "k", "image/png", strings.NewReader(""), 0)
	assert.ErrorContains(t, err, "denied")
	assert.Error(t, store.Remove(context.Background(), "k"))
}

func TestKeyFromForeignURL(t *testing.T) {
	store := newS3Store(&fakeS3{}, "avatars", "https://cdn")
	assert.Empty(t, KeyFromURL(store, "https://elsewhere/x.png"))
	assert.Empty(t, KeyFromURL(store, ""))
}

func TestNewObjectStoreUnknownDriver(t *testing.T) {
	_, err := NewObjectStore(context.Background(), config.AvatarsConfig{Driver: "ftp"})
	assert.Error(t, err)
}
