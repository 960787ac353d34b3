package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/service"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the only seed file version this loader understands.
const FormatVersion = 1

// File is a versioned catalog seed file.
type File struct {
	Version  int                      `yaml:"version" json:"version"`
	Products []service.ProductRequest `yaml:"products" json:"products"`
}

// ImageFix replaces the images of the product with the given name.
type ImageFix struct {
	Name   string   `yaml:"name" json:"name"`
	Images []string `yaml:"images" json:"images"`
}

// FixFile is a versioned list of image repairs.
type FixFile struct {
	Version int        `yaml:"version" json:"version"`
	Fixes   []ImageFix `yaml:"fixes" json:"fixes"`
}

// ReadFile parses a product seed file. YAML and JSON are accepted, chosen by extension.
func ReadFile(path string) (*File, error) {
	var f File
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	if err := checkVersion(f.Version); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// ReadFixFile parses an image repair file.
func ReadFixFile(path string) (*FixFile, error) {
	var f FixFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	if err := checkVersion(f.Version); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decode(data, filepath.Ext(path), out)
}

func decode(data []byte, ext string, out any) error {
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Validation(fmt.Sprintf("invalid JSON seed file: %v", err))
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, out); err != nil {
			return apperrors.Validation(fmt.Sprintf("invalid YAML seed file: %v", err))
		}
	default:
		return apperrors.Validation(fmt.Sprintf("unsupported seed file extension %q", ext))
	}
	return nil
}

func checkVersion(v int) error {
	if v != FormatVersion {
		return apperrors.Validation(fmt.Sprintf("unsupported seed file version %d (want %d)", v, FormatVersion))
	}
	return nil
}
