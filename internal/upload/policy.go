package upload

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultMaxByteSize is the default per-file size ceiling (5 MiB).
const DefaultMaxByteSize = 5 * 1024 * 1024

// Policy describes which files a Manager admits. It is immutable for the
// lifetime of one Manager instance.
type Policy struct {
	AllowMultiple    bool     `yaml:"allowMultiple"`
	AllowedMIMETypes []string `yaml:"allowedTypes"`
	MaxByteSize      int64    `yaml:"maxFileSize"`
}

// DefaultPolicy returns the default single-select policy.
func DefaultPolicy() Policy {
	return Policy{
		AllowMultiple: false,
		AllowedMIMETypes: []string{
			"image/png",
			"image/jpeg",
			"application/pdf",
			"audio/mpeg",
			"audio/wav",
			"video/mp4",
			"application/msword",
			"text/plain",
		},
		MaxByteSize: DefaultMaxByteSize,
	}
}

// LoadPolicy reads a Policy from a YAML file. Omitted fields fall back to
// the defaults.
func LoadPolicy(path string) (Policy, error) {
	file, err := os.Open(path)
	if err != nil {
		return Policy{}, err
	}
	defer file.Close()

	return ParsePolicyFromReader(file)
}

// ParsePolicyFromReader parses a Policy from an io.Reader.
func ParsePolicyFromReader(r io.Reader) (Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, err
	}

	policy := Policy{AllowMultiple: false}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parsing policy: %w", err)
	}

	defaults := DefaultPolicy()
	if len(policy.AllowedMIMETypes) == 0 {
		policy.AllowedMIMETypes = defaults.AllowedMIMETypes
	}
	if policy.MaxByteSize <= 0 {
		policy.MaxByteSize = defaults.MaxByteSize
	}

	return policy, nil
}

// Validate checks a candidate against the policy. It returns ok=false with a
// user-facing message when the candidate must be skipped.
func (p Policy) Validate(mimeType string, size int64) (msg string, ok bool) {
	if !p.allows(mimeType) {
		return "Unsupported file type! Please upload a PNG, JPEG, PDF, MP3, WAV, MP4, DOC, or TXT file.", false
	}
	if size > p.MaxByteSize {
		return fmt.Sprintf("File size exceeds the maximum limit of %s MB!", formatMegabytes(p.MaxByteSize)), false
	}
	return "", true
}

func (p Policy) allows(mimeType string) bool {
	for _, t := range p.AllowedMIMETypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// formatMegabytes renders a byte count as megabytes without trailing zeros,
// so 5242880 becomes "5" and 6815744 becomes "6.5".
func formatMegabytes(n int64) string {
	return strconv.FormatFloat(float64(n)/(1024*1024), 'f', -1, 64)
}
