package httpx

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html/charset"
)

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// ReadBody drains and closes resp.Body, undoing gzip or deflate content
// encoding and decoding the declared charset to UTF-8. Bytes that cannot be
// decoded are dropped.
func ReadBody(resp *http.Response) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", nil
	}
	defer resp.Body.Close()
	raw, err := readAllLimited(resp)
	if err != nil {
		return "", err
	}
	raw, err = decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return "", err
	}
	return DecodeText(raw, resp.Header.Get("Content-Type")), nil
}

func readAllLimited(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

func decompress(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			// Some servers label plain bodies as gzip.
			return raw, nil
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, maxBody))
		if err != nil && len(out) == 0 {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		return out, nil
	case "deflate":
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			if out, err := io.ReadAll(io.LimitReader(zr, maxBody)); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		out, err := io.ReadAll(io.LimitReader(fr, maxBody))
		if err != nil && len(out) == 0 {
			return raw, nil
		}
		return out, nil
	}
	return raw, nil
}

// DecodeText converts raw bytes to a UTF-8 string using the charset
// parameter of contentType, defaulting to UTF-8. Invalid sequences and
// replacement characters are removed.
func DecodeText(raw []byte, contentType string) string {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	s := string(raw)
	if label != "" && !strings.EqualFold(label, "utf-8") && !strings.EqualFold(label, "utf8") {
		if enc, _ := charset.Lookup(label); enc != nil {
			if out, err := enc.NewDecoder().Bytes(raw); err == nil {
				s = string(out)
			}
		}
	}
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\uFFFD", "")
}
