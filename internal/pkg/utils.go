package pkg

import (
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StringUtils provides string utility functions
type StringUtils struct{}

// IsEmpty checks if string is empty or contains only whitespace
func (StringUtils) IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Contains checks if string contains substring (case-insensitive)
func (StringUtils) Contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Slugify converts string to URL-friendly slug
func (StringUtils) Slugify(s string) string {
	s = strings.ToLower(s)

	reg := regexp.MustCompile(`[^a-z0-9]+`)
	s = reg.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// TimeUtils provides time utility functions
type TimeUtils struct{}

// TimeAgo returns human-readable time difference
func (TimeUtils) TimeAgo(t time.Time) string {
	diff := time.Since(t)

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	if days < 7 {
		return fmt.Sprintf("%d days ago", days)
	}
	if days < 30 {
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	}
	if days < 365 {
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}
	return fmt.Sprintf("%d years ago", years)
}

// FileUtils provides file utility functions
type FileUtils struct{}

// GetMimeType returns MIME type from file extension
func (FileUtils) GetMimeType(filename string) string {
	ext := filepath.Ext(filename)
	return mime.TypeByExtension(ext)
}

// FormatFileSize formats a byte count in human-readable binary units,
// rounded to at most two decimal places. Zero is rendered as "0 B".
func (FileUtils) FormatFileSize(size int64) string {
	if size == 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	pow := 0
	value := float64(size)
	for value >= 1024 && pow < len(units)-1 {
		value /= 1024
		pow++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + units[pow]
}

// SanitizeFilename removes or replaces invalid characters in filename
func (FileUtils) SanitizeFilename(filename string) string {
	reg := regexp.MustCompile(`[<>:"/\\|?*]`)
	filename = reg.ReplaceAllString(filename, "_")

	filename = strings.Trim(filename, " .")

	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		name := filename[:255-len(ext)]
		filename = name + ext
	}

	return filename
}

// Global utility instances
var (
	Strings = StringUtils{}
	Times   = TimeUtils{}
	Files   = FileUtils{}
)
