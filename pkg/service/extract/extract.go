package extract

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

// ErrUnsupportedFormat is returned for file types that cannot be read as text
var ErrUnsupportedFormat = goerr.New("unsupported file format")

// maxFileSize bounds the bytes read from one upload
const maxFileSize = 32 << 20

// SupportedExtensions lists extensions Text can read
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown", ".pdf"}
}

// IsSupported reports whether filename has a readable extension
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}

// Text reads r and returns its plain text, choosing the reader by the
// extension of filename.
func Text(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !IsSupported(filename) {
		return "", goerr.Wrap(ErrUnsupportedFormat, "cannot extract text", goerr.V("filename", filename), goerr.V("ext", ext))
	}

	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return "", goerr.Wrap(err, "failed to read file", goerr.V("filename", filename))
	}
	if len(data) > maxFileSize {
		return "", goerr.New("file is too large", goerr.V("filename", filename), goerr.V("limit", maxFileSize))
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = pdfText(data)
		if err != nil {
			return "", goerr.Wrap(err, "failed to extract PDF text", goerr.V("filename", filename))
		}
	default:
		text = plainText(data)
	}

	logging.From(ctx).Debug("Extracted text", "filename", filename, "chars", len(text))
	return strings.TrimSpace(text), nil
}

func plainText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(data)
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("malformed pdf", goerr.V("panic", r))
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open pdf")
	}

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", goerr.Wrap(err, "failed to read pdf text")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", goerr.Wrap(err, "failed to read pdf buffer")
	}
	return buf.String(), nil
}
