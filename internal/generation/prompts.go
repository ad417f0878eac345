package generation

import (
	"fmt"
	"strings"

	"github.com/ytvaala/ytvaala/internal/model"
)

// Thumbnail option values.
var (
	ThumbnailCategories = []string{"tech", "vlogging", "education", "cooking", "lifestyle", "gaming"}
	ThumbnailStyles     = []string{"bold", "minimalist", "cartoon", "photo"}
	ThumbnailMoods      = []string{"excited", "serious", "educational", "funny", "mysterious"}
)

var categoryStyles = map[string]string{
	"tech":      "a sleek, modern and clean look with a futuristic feel, a palette of blues, blacks and whites, and high-tech type",
	"vlogging":  "a personal, authentic and engaging look with bright natural colours, friendly legible type and a person's face with a clear expression",
	"gaming":    "a dynamic, high-energy look with vibrant contrasting colours, dramatic type and elements from the game itself",
	"education": "a clear, informative and professional look with a clean layout, easy-to-read type and graphics that explain the topic",
	"cooking":   "a warm, inviting look with rich appetising colours, elegant or rustic type and high-quality food photography",
	"lifestyle": "an aspirational, clean look with soft trendy colours, stylish type and high-quality photography",
}

var styleGuides = map[string]string{
	"bold":       "heavy outlined headline text, saturated colours and strong contrast",
	"minimalist": "generous negative space, at most two colours and a single small headline",
	"cartoon":    "a flat illustrated look with thick outlines and exaggerated shapes",
	"photo":      "a realistic photographic scene with cinematic lighting",
}

var moodGuides = map[string]string{
	"excited":     "high energy, wide eyes and motion",
	"serious":     "a calm, focused expression and a restrained palette",
	"educational": "a clear, trustworthy tone with explanatory visual cues",
	"funny":       "a playful, exaggerated expression and bright accents",
	"mysterious":  "shadowy lighting, partial reveals and a sense of intrigue",
}

// AspectRatioFor returns the output shape of a generation variant.
func AspectRatioFor(kind model.OperationKind) AspectRatio {
	switch kind {
	case model.KindThumbnail, model.KindBanner:
		return Landscape
	case model.KindShorts:
		return Portrait
	default:
		return Square
	}
}

// ThumbnailInput describes a video thumbnail request.
type ThumbnailInput struct {
	VideoTitle  string
	Category    string
	Style       string
	Mood        string
	IncludeFace bool
	// HasFaceImage reports whether a reference photo of the face was sent.
	HasFaceImage bool
}

// ThumbnailPrompt builds the prompt for a 16:9 video thumbnail.
func ThumbnailPrompt(in ThumbnailInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Design a click-worthy YouTube thumbnail for a video titled %q.\n\n", in.VideoTitle)
	fmt.Fprintf(&b, "Category style: %s.\n", categoryStyles[in.Category])
	fmt.Fprintf(&b, "Visual style: %s.\n", styleGuides[in.Style])
	fmt.Fprintf(&b, "Mood: %s.\n", moodGuides[in.Mood])
	b.WriteString("Composition: ")
	b.WriteString(compositionFor(in))
	b.WriteString("\n\nRender at most four large, legible words drawn from the title. ")
	b.WriteString("The final image MUST be a 16:9 landscape image. ")
	b.WriteString("Avoid clutter, small text and low contrast.")
	return b.String()
}

func compositionFor(in ThumbnailInput) string {
	switch {
	case in.IncludeFace && in.HasFaceImage:
		return fmt.Sprintf("use the person from the reference photo as the focal point on one third of the frame, keep their identity recognisable and give them an expression that fits a %s mood; put the headline on the opposite side.", in.Mood)
	case in.IncludeFace:
		return fmt.Sprintf("feature a single expressive person as the focal point with an expression that fits a %s mood; put the headline on the opposite side.", in.Mood)
	default:
		return "build the frame around one striking object or scene from the topic with no people; place the headline where it does not cover the subject."
	}
}

// BannerPrompt builds the prompt for a 16:9 channel banner.
func BannerPrompt(description string) string {
	return fmt.Sprintf(`Design a high-resolution YouTube channel banner for a channel about %q.

Keep every important element (text, logo and key visuals) inside the central safe area so nothing is cropped on phones or TVs; the outer areas hold complementary background graphics only.
Use a clean, professional visual that matches the channel topic, a cohesive colour palette, and modern legible type for any channel name or tagline.
The final image MUST be a 16:9 landscape image.
Avoid clutter, low-contrast text and anything important outside the safe area.`, description)
}

// LogoPrompt builds the prompt for a square channel logo.
func LogoPrompt(description string) string {
	return fmt.Sprintf(`Design a modern, minimalist logo for a brand or channel described as %q.

Logomark: one unified, geometric abstract symbol with a clear conceptual link to the brand, such as combined initials, a symbolic shape or a clever use of negative space. No literal clip-art icons.
Colour: a sophisticated palette of no more than three colours; gradients only if smooth and subtle.
Logotype: the brand name in a clean, medium-weight sans-serif with slightly open letter spacing, in one solid dark colour.
Lockup: mark centred above the name with balanced clear space, flat vector finish, on a plain white background.
The final image MUST be square (1:1).
Avoid 3D effects, shadows, glows, multiple disconnected shapes and default system fonts.`, description)
}

// SocialPostPrompt builds the prompt for a square promotional post graphic.
func SocialPostPrompt(idea string) string {
	return fmt.Sprintf(`Create one finished, ready-to-post promotional graphic about %q.

Background: a clean, modern, high-quality visual related to the topic with a dark overlay so text stays readable.
Text, rendered inside the image and spelled correctly: a punchy headline of five to nine words, one or two short body sentences, and three or four checkmark bullet points with key benefits.
Typography: a bold modern sans-serif with a clear hierarchy, left-aligned with generous padding, headline largest.
The final image MUST be square (1:1).
Avoid blurry or misspelled text, clutter and low contrast.`, idea)
}

// ShortsPrompt builds the prompt for a vertical Shorts thumbnail.
func ShortsPrompt(idea string) string {
	return fmt.Sprintf(`Design a scroll-stopping YouTube Shorts thumbnail about %q.

Use high-energy, high-contrast, saturated colours with dramatic lighting and one single focal point.
Pick one to three of the strongest keywords from the topic and render them as huge, bold text with an outline or solid block behind it so it reads instantly on a phone.
The final image MUST be vertical (9:16).
Avoid clutter, small details and more than one subject.`, idea)
}

// SEOPrompt builds the prompt for video title, description and tags.
func SEOPrompt(topic string) string {
	return fmt.Sprintf(`You are a YouTube SEO strategist. A creator is making a video about %q.

Return a JSON object with:
- "title": an engaging, search-friendly title under 70 characters.
- "description": two or three paragraphs whose first two sentences contain the main keywords, ending with three to five hashtags.
- "tags": ten to fifteen tags mixing broad, specific and long-tail keywords.

Return only the JSON object.`, topic)
}
