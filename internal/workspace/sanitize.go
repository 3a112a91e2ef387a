package workspace

import "strings"

// SanitizeForFileSystem strips characters that are unsafe across Linux,
// macOS, and Windows filesystems, the same substitution table the
// teacher's DefaultPathSanitizer uses for subtitle-derived basenames,
// generalized here for episode labels derived from a channel+title pair or
// a local audio file's basename.
func SanitizeForFileSystem(input string) string {
	sanitized := strings.ReplaceAll(input, "'", " ")
	replacer := strings.NewReplacer(
		":", "_",
		"\\", "_",
		"/", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	sanitized = replacer.Replace(sanitized)
	return strings.TrimSpace(sanitized)
}

// SanitizeForFFmpeg escapes a path for embedding inside an ffmpeg filter
// graph or concat-demuxer list entry.
func SanitizeForFFmpeg(input string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		":", "\\:",
		"[", "\\[",
		"]", "\\]",
		",", "\\,",
		";", "\\;",
	)
	return replacer.Replace(input)
}
