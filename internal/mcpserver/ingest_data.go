package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/algiz/internal/apperr"
)

const maxIngestSize = 64 << 20 // 64 MB

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type ingestResult struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
	Name string `json:"name"`
}

func (s *Server) ingestData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxIngestSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxIngestSize)), nil
	}

	filename := sanitizeFilename(req.GetString("filename", ""), ext)
	d, err := s.archive.IngestReader(ctx, filename, bytes.NewReader(data))
	if errors.Is(err, apperr.ErrDuplicateContent) {
		return mcp.NewToolResultError("content is already archived"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(ingestResult{ID: d.ID, Hash: d.Hash, Name: d.FileName()})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI and returns
// the payload with an extension guessed from the media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing data: prefix")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mediaType := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := ""
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return data, ext, nil
}

// sanitizeFilename strips path separators and unsafe characters, falling
// back to a random name carrying ext.
func sanitizeFilename(name, ext string) string {
	if name != "" {
		name = safeFilenameRe.ReplaceAllString(filepath.Base(name), "_")
	}
	if name == "" || name == "." || strings.Trim(name, "_.") == "" {
		name = uuid.New().String() + ext
	}
	return name
}
