package textutil

import (
	"reflect"
	"testing"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single hashtag",
			text: "Follow up on pricing #renewal",
			want: []string{"renewal"},
		},
		{
			name: "multiple hashtags sorted",
			text: "#q3 deal with #acme, loop in #legal",
			want: []string{"acme", "legal", "q3"},
		},
		{
			name: "hyphens and underscores",
			text: "Tagged #cold-lead and #Needs_Demo",
			want: []string{"cold-lead", "needs_demo"},
		},
		{
			name: "duplicates collapse case-insensitively",
			text: "#Hot #hot #HOT",
			want: []string{"hot"},
		},
		{
			name: "numeric tags are ticket numbers",
			text: "Re order #4411 for #acme",
			want: []string{"acme"},
		},
		{
			name: "markdown headings are not tags",
			text: "# Call notes\n\n## Next steps\n- send deck #followup",
			want: []string{"followup"},
		},
		{
			name: "url fragments are not tags",
			text: "Spec at https://docs.example.com/page#pricing (#pricing-review)",
			want: []string{"pricing-review"},
		},
		{
			name: "list brackets",
			text: "[#partner] intro",
			want: []string{"partner"},
		},
		{
			name: "no hashtags",
			text: "Just plain notes",
			want: []string{},
		},
		{
			name: "empty string",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHashtags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractHashtags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasHashtag(t *testing.T) {
	text := "Send contract #Renewal"
	if !HasHashtag(text, "renewal") || !HasHashtag(text, "#RENEWAL") {
		t.Error("expected tag to match regardless of case or leading #")
	}
	if HasHashtag(text, "contract") {
		t.Error("plain words are not tags")
	}
}
