package annotation

import "strings"

// DefaultPalette - иконки, доступные для размещения.
var DefaultPalette = []string{"AutroGuard", "BSD_1000", "MCP"}

// ParsePalette разбирает список иконок через запятую.
func ParsePalette(s string) []string {
	var icons []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			icons = append(icons, name)
		}
	}
	if len(icons) == 0 {
		return append([]string(nil), DefaultPalette...)
	}
	return icons
}
