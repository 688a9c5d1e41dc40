package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{"simple name", "Vacation", AlbumFallback, "vacation"},
		{"spaces become hyphens", "Yaz Tatili 2024", AlbumFallback, "yaz-tatili-2024"},
		{"turkish lowercase letters", "çiçek bahçesi", AlbumFallback, "cicek-bahcesi"},
		{"turkish uppercase letters", "İstanbul Gezisi", AlbumFallback, "istanbul-gezisi"},
		{"dotless capital I", "IŞIK", AlbumFallback, "isik"},
		{"punctuation collapses", "Hello... World!!!", AlbumFallback, "hello-world"},
		{"consecutive separators collapse", "a  --  b", AlbumFallback, "a-b"},
		{"leading and trailing trimmed", "  --hello--  ", AlbumFallback, "hello"},
		{"only symbols falls back", "!!!", AlbumFallback, "album"},
		{"empty falls back", "", AlbumFallback, "album"},
		{"photo fallback", "???", PhotoFallback, "photo"},
		{"digits survive", "IMG 2024 001", PhotoFallback, "img-2024-001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Make(tc.input, tc.fallback)
			if got != tc.expected {
				t.Fatalf("Make(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple filename", "Beach.JPG", "beach.jpg"},
		{"spaces in base", "My Photo.png", "my-photo.png"},
		{"turkish characters", "Düğün Fotoğrafı.jpeg", "dugun-fotografi.jpeg"},
		{"no extension", "snapshot", "snapshot"},
		{"unusable base falls back", "###.gif", "photo.gif"},
		{"empty falls back without dot", "", "photo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeFilename(tc.input)
			if got != tc.expected {
				t.Fatalf("SanitizeFilename(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
