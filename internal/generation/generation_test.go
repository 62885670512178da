package generation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAndJoin(t *testing.T) {
	joined := JoinContent([]string{EncodeText("X"), EncodeText("Y")})
	assert.Equal(t, "WA==,WQ==", joined)

	files, err := DecodeContent(joined)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, files)
}

func TestEncodeTextUsesUTF8Bytes(t *testing.T) {
	assert.Equal(t, "w6k=", EncodeText("é"))
	assert.Equal(t, "5YWJ", EncodeText("光"))

	files, err := DecodeContent(JoinContent([]string{EncodeText("é"), EncodeText("光合作用")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"é", "光合作用"}, files)
}

func TestDecodeContentEmptyAndInvalid(t *testing.T) {
	files, err := DecodeContent("")
	require.NoError(t, err)
	assert.Nil(t, files)

	_, err = DecodeContent("WA==,!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 1")
}

func TestHTTPGeneratorSuccess(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/filequery", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"questions":["What is X?"]}` + "\n"))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL+"/filequery", srv.Client())
	out, err := g.Generate(context.Background(), Request{
		Prompt:            "p",
		Filename:          "something.txt",
		FileContentBase64: "WA==,WQ==",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"questions":["What is X?"]}`, string(out))
	assert.Equal(t, map[string]string{
		"prompt":              "p",
		"filename":            "something.txt",
		"file_content_base64": "WA==,WQ==",
	}, got)
}

func TestHTTPGeneratorFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/text":
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	_, err := NewHTTPGenerator(srv.URL+"/down", nil).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)

	_, err = NewHTTPGenerator(srv.URL+"/text", nil).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not JSON")
}
