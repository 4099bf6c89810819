package notification

import (
	"fmt"
	"sort"

	"github.com/go-resty/resty/v2"
)

func newRestClient() *resty.Client {
	return resty.New().
		SetTimeout(sendTimeout).
		SetHeader("User-Agent", userAgent)
}

func checkResponse(service string, resp *resty.Response) error {
	if resp.IsError() {
		return fmt.Errorf("%s returned status %d", service, resp.StatusCode())
	}
	return nil
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// formatFileSize formats a file size in bytes to a human-readable string
func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
