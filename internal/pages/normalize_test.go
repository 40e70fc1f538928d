package pages

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizerText(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  Ana Silva  ", want: "Ana Silva"},
		{name: "tags stripped", in: "<b>Ana</b> <script>alert(1)</script>Silva", want: "Ana Silva"},
		{name: "entities kept as text", in: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "empty", in: "", want: ""},
		{name: "encoded tags stripped", in: "&lt;b&gt;hi&lt;/b&gt;", want: "hi"},
		{name: "encoded ampersand", in: "Tom &amp; Jerry", want: "Tom & Jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Title(tt.in); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizerTextIsStable(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{
		"&lt;b&gt;hi&lt;/b&gt;",
		"&amp;lt;i&amp;gt;deep&amp;lt;/i&amp;gt;",
		"Tom &amp; Jerry",
		"Tom & Jerry",
		"a < b > c",
		"<p>Designer &amp; <em>maker</em></p>",
		strings.Repeat("&amp;", 50),
	}
	for _, in := range inputs {
		once := n.Title(in)
		if twice := n.Title(once); twice != once {
			t.Errorf("Title not stable for %q: once=%q twice=%q", in, once, twice)
		}
		once = n.Description(in)
		if twice := n.Description(once); twice != once {
			t.Errorf("Description not stable for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalizerCaps(t *testing.T) {
	n := NewNormalizer()
	if got := n.Title(strings.Repeat("é", 200)); utf8.RuneCountInString(got) != MaxTitleLength {
		t.Errorf("title runes = %d, want %d", utf8.RuneCountInString(got), MaxTitleLength)
	}
	if got := n.Description(strings.Repeat("x", 1000)); len(got) != MaxDescriptionLength {
		t.Errorf("description length = %d, want %d", len(got), MaxDescriptionLength)
	}
}

func TestNormalizerSocialLink(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "empty", in: "", want: ""},
		{name: "bare handle", in: "ana.silva", want: "https://instagram.com/ana.silva"},
		{name: "at handle", in: "@ana", want: "https://instagram.com/ana"},
		{name: "only at", in: "@", want: ""},
		{name: "single at stripped", in: "@@ana", want: "https://instagram.com/@ana"},
		{name: "https passes", in: "https://example.com/ana", want: "https://example.com/ana"},
		{name: "http passes", in: " http://example.com ", want: "http://example.com"},
		{name: "mixed case scheme", in: "HTTPS://instagram.com/ana", want: "HTTPS://instagram.com/ana"},
		{name: "too long", in: "https://example.com/" + strings.Repeat("a", 300), wantErr: ErrSocialLinkTooLong},
		{name: "handle too long once expanded", in: strings.Repeat("a", 240), wantErr: ErrSocialLinkTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.SocialLink(tt.in)
			if tt.wantErr != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("SocialLink(%q) error = %v, want ValidationError wrapping %v", tt.in, err, tt.wantErr)
				}
				if ve.Field != FieldSocialLink {
					t.Errorf("Field = %q", ve.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("SocialLink(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("SocialLink(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
