package relay

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
)

// FormField is one entry of a multipart body. A field is a file part when
// Type is "file" or Base is set. Base is either a data: URL or a path to a
// local file under the configured file root.
type FormField struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Checked *bool  `json:"checked,omitempty"`
	Type    string `json:"type,omitempty"`
	Base    string `json:"base,omitempty"`
}

const fieldTypeFile = "file"

var errLocalFilesDisabled = errors.New("local file parts are disabled: base must be a data: URL unless a file root is configured")

func (f FormField) isFile() bool {
	return f.Type == fieldTypeFile || f.Base != ""
}

// MultipartEncoder expects the raw body to be a JSON array of FormField.
type MultipartEncoder struct {
	FileRoot string
}

func (e MultipartEncoder) Encode(req *http.Request, body string) error {
	fields, err := ParseFormFields(body)
	if err != nil {
		return err
	}

	buf, contentType, err := BuildMultipartBody(fields, e.FileRoot)
	if err != nil {
		return &Error{Kind: KindEncoding, Err: err}
	}
	relayhttp.SetBody(req, buf.Bytes(), contentType)
	return nil
}

// ParseFormFields parses a multipart body description. An empty body is an
// empty form.
func ParseFormFields(body string) ([]FormField, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var fields []FormField
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, newError(KindEncoding, "multipart body must be a JSON array of form fields: %w", err)
	}
	return fields, nil
}

// BuildMultipartBody creates a multipart form data body from form fields.
// Fields explicitly unchecked are left out.
func BuildMultipartBody(fields []FormField, fileRoot string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		if field.Checked != nil && !*field.Checked {
			continue
		}
		if field.Key == "" {
			return nil, "", fmt.Errorf("form field without a key")
		}

		if !field.isFile() {
			if err := writer.WriteField(field.Key, field.Value); err != nil {
				return nil, "", err
			}
			continue
		}

		if err := writeFilePart(writer, field, fileRoot); err != nil {
			return nil, "", fmt.Errorf("field %q: %w", field.Key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, field FormField, fileRoot string) error {
	if field.Base == "" {
		return fmt.Errorf("file part has no content")
	}

	var (
		data     []byte
		mimeType = "application/octet-stream"
		filename = field.Value
		err      error
	)

	if strings.HasPrefix(field.Base, "data:") {
		var declared string
		data, declared, err = decodeDataURL(field.Base)
		if err != nil {
			return err
		}
		if declared != "" {
			mimeType = declared
		}
	} else {
		// without a root there is no directory a caller may read from
		if fileRoot == "" {
			return errLocalFilesDisabled
		}
		path := field.Base
		if !filepath.IsAbs(path) {
			path = filepath.Join(fileRoot, path)
		}
		if err := validatePathWithinBase(path, fileRoot); err != nil {
			return err
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return err
		}
		if filename == "" {
			filename = filepath.Base(path)
		}
	}

	if filename == "" {
		filename = field.Key
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(field.Key), escapeQuotes(filename)))
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, bytes.NewReader(data))
	return err
}

// decodeDataURL decodes "data:[<mediatype>][;base64],<data>".
func decodeDataURL(raw string) ([]byte, string, error) {
	meta, payload, found := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URL: missing ','")
	}

	isBase64 := strings.HasSuffix(meta, ";base64")
	mimeType := strings.TrimSuffix(meta, ";base64")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("malformed data URL: %w", err)
		}
		return data, mimeType, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URL: %w", err)
	}
	return []byte(data), mimeType, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	// Clean and resolve both paths
	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	// Ensure the path starts with the base directory
	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}
