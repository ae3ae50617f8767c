package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestUploadDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newStore(fake, "pics", "https://storage.example.com/pics/")
	ctx := context.Background()

	url, err := s.Upload(ctx, []byte("jpeg"), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://storage.example.com/pics/photos/"))
	require.Len(t, fake.objects, 1)

	require.NoError(t, s.Delete(ctx, url))
	require.Empty(t, fake.objects)
}

func TestUpload_Error(t *testing.T) {
	boom := errors.New("denied")
	s := newStore(&fakeS3{objects: map[string][]byte{}, putErr: boom}, "pics", "https://x/pics/")
	_, err := s.Upload(context.Background(), []byte("jpeg"), "image/png")
	require.ErrorIs(t, err, boom)
}

func TestKeyFor(t *testing.T) {
	s := newStore(nil, "pics", "https://pics.s3.eu-west-1.amazonaws.com/")

	key, err := s.keyFor("https://pics.s3.eu-west-1.amazonaws.com/photos/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "photos/a.jpg", key)

	key, err = s.keyFor("https://cdn.example.com/pics/photos/b.jpg")
	require.NoError(t, err)
	require.Equal(t, "photos/b.jpg", key)

	_, err = s.keyFor("https://elsewhere.example.com/x.jpg")
	require.Error(t, err)
}
