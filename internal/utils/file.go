package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the lower-cased file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// NormalizeFormat maps an extension or format name to jpg, png or webp.
// Unknown names give "".
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		return "jpg"
	case "png":
		return "png"
	case "webp":
		return "webp"
	}
	return ""
}

// FrameBaseName names the exports of one frame: the image name without its
// extension, or "frame_{n}" when the backend gave no name.
func FrameBaseName(imageName string, frame int) string {
	base := SanitizeFilename(strings.TrimSuffix(filepath.Base(imageName), filepath.Ext(imageName)))
	if base == "" || base == "_" {
		return fmt.Sprintf("frame_%d", frame)
	}
	return base
}

// GenerateOutputFilename joins outputDir with prefix+name+suffix.format.
func GenerateOutputFilename(name, outputDir, prefix, suffix, format string) string {
	if format == "" {
		format = "png"
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s%s%s.%s", prefix, name, suffix, format))
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	result = strings.Trim(result, " .")

	return result
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FileSize returns a formatted size for path, or "" when it cannot be read.
func FileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return FormatFileSize(info.Size())
}
