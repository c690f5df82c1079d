package objectstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKeyLayout(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	key := DocumentKey("CE", "proveedores", "folder-1", "contrato.pdf", now)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "CE", parts[0])
	assert.Equal(t, "proveedores", parts[1])
	assert.Equal(t, "folder-1", parts[2])
	assert.True(t, strings.HasSuffix(parts[3], "-contrato.pdf"), parts[3])
	assert.Len(t, strings.TrimSuffix(parts[3], "-contrato.pdf"), 26)
}

func TestDocumentKeyIsUniquePerUpload(t *testing.T) {
	now := time.Now()
	a := DocumentKey("CE", "proveedores", "f", "a.pdf", now)
	b := DocumentKey("CE", "proveedores", "f", "a.pdf", now)
	assert.NotEqual(t, a, b)
}

func TestDocumentKeyFillsEmptySegments(t *testing.T) {
	key := DocumentKey("", "/proveedores/", "", "x.pdf", time.Now())
	assert.True(t, strings.HasPrefix(key, "_/proveedores/_/"), key)
}

func TestDocumentKeyKeepsDotSegmentsInPlace(t *testing.T) {
	for _, moduleType := range []string{"..", ".", " .. ", "/../"} {
		key := DocumentKey("CE", moduleType, "folder-1", "x.pdf", time.Now())
		parts := strings.Split(key, "/")
		require.Len(t, parts, 4, key)
		assert.Equal(t, "CE", parts[0])
		assert.Equal(t, "_", parts[1], key)
		assert.Equal(t, "folder-1", parts[2])
	}

	key := DocumentKey("..", "proveedores", "..", "x.pdf", time.Now())
	assert.True(t, strings.HasPrefix(key, "_/proveedores/_/"), key)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"contrato.pdf":               "contrato.pdf",
		"Informe Final (v2).docx":    "Informe-Final-v2-.docx",
		"../../etc/passwd":           "passwd",
		`C:\Users\ana\acta.xlsx`:     "acta.xlsx",
		"año--lectivo.pdf":           "a-o-lectivo.pdf",
		"   ":                        "archivo",
		"###":                        "archivo",
	}
	for input, want := range cases {
		assert.Equal(t, want, SanitizeFileName(input), input)
	}
}

func TestPresignGetIncludesExpiry(t *testing.T) {
	b, err := New(Config{
		Endpoint:  "localhost:9000",
		Region:    "us-east-1",
		Bucket:    "documentos",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	signed, err := b.PresignGet(t.Context(), "CE/proveedores/f/contrato.pdf", time.Hour, "contrato.pdf")
	require.NoError(t, err)
	assert.Contains(t, signed, "X-Amz-Expires=3600")
	assert.Contains(t, signed, "X-Amz-Signature=")
	assert.Contains(t, signed, "/documentos/CE/proveedores/f/contrato.pdf")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
