package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Fixed point prices per generation. They are not configurable per request.
const (
	TextGenerationCost  = 5
	ImageGenerationCost = 10
)

const (
	// ThreadSegments is the number of posts requested for a thread.
	ThreadSegments = 5

	// MaxSegmentChars is the per-post character budget requested for a thread.
	MaxSegmentChars = 280

	// MaxAnalyzedImages is how many attachments are forwarded to the provider.
	MaxAnalyzedImages = 4

	// SegmentSeparator separates segments in raw provider text and in stored history.
	SegmentSeparator = "\n\n"
)

// ContentType is the wire representation of a content variant.
type ContentType string

const (
	ContentTypeTwitter   ContentType = "twitter"
	ContentTypeInstagram ContentType = "instagram"
	ContentTypeLinkedIn  ContentType = "linkedin"
	ContentTypeImage     ContentType = "image"
)

// Modality identifies which kind of provider serves a variant.
type Modality int

const (
	ModalityText Modality = iota
	ModalityImage
)

func (m Modality) String() string {
	if m == ModalityImage {
		return "image"
	}
	return "text"
}

// Variant is a closed set of content kinds. Each implementation carries its
// own rules for instruction text, attachment handling, segmentation and cost,
// so callers never branch on the content type string.
type Variant interface {
	// Type returns the wire content type.
	Type() ContentType

	// Modality reports whether the variant is served by a text or image provider.
	Modality() Modality

	// Cost returns the fixed point price of one successful generation.
	Cost() int

	// AnalyzesImages reports whether attachments are forwarded to the provider.
	AnalyzesImages() bool

	// Instruction derives the provider instruction for a prompt and the
	// number of images actually forwarded.
	Instruction(prompt string, imageCount int) string

	// Segments splits raw provider text into displayable segments.
	Segments(raw string) []string

	// SuccessMessage and FailureMessage are the user-facing notifications
	// for a completed or failed generation.
	SuccessMessage() string
	FailureMessage() string

	sealed()
}

// TwitterThread is a thread of short posts.
type TwitterThread struct{}

// InstagramCaption is a caption that may describe attached images.
type InstagramCaption struct{}

// LinkedInPost is a single long-form post.
type LinkedInPost struct{}

// ImageArt is a generated image.
type ImageArt struct{}

var (
	_ Variant = TwitterThread{}
	_ Variant = InstagramCaption{}
	_ Variant = LinkedInPost{}
	_ Variant = ImageArt{}
)

// Variants lists every supported variant in display order.
func Variants() []Variant {
	return []Variant{TwitterThread{}, InstagramCaption{}, LinkedInPost{}, ImageArt{}}
}

// ParseContentType resolves a wire content type into its Variant.
func ParseContentType(s string) (Variant, error) {
	normalized := ContentType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Variants() {
		if v.Type() == normalized {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

func baseInstruction(ct ContentType, prompt string) string {
	return fmt.Sprintf("Generate %s content about \"%s\".", ct, prompt)
}

// blankLine matches a boundary of one or more blank lines.
var blankLine = regexp.MustCompile(`\n\s*\n`)

// splitSegments splits on blank-line boundaries and drops fragments that are
// empty or whitespace only. Surviving fragments are kept verbatim.
func splitSegments(raw string) []string {
	parts := blankLine.Split(raw, -1)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

func (TwitterThread) Type() ContentType    { return ContentTypeTwitter }
func (TwitterThread) Modality() Modality   { return ModalityText }
func (TwitterThread) Cost() int            { return TextGenerationCost }
func (TwitterThread) AnalyzesImages() bool { return false }
func (TwitterThread) sealed()              {}

func (TwitterThread) Instruction(prompt string, _ int) string {
	return baseInstruction(ContentTypeTwitter, prompt) +
		fmt.Sprintf(" Provide a thread of %d tweets, each under %d characters.", ThreadSegments, MaxSegmentChars)
}

func (TwitterThread) Segments(raw string) []string { return splitSegments(raw) }
func (TwitterThread) SuccessMessage() string       { return "Content generated successfully!" }
func (TwitterThread) FailureMessage() string       { return "Failed to generate content" }

func (InstagramCaption) Type() ContentType    { return ContentTypeInstagram }
func (InstagramCaption) Modality() Modality   { return ModalityText }
func (InstagramCaption) Cost() int            { return TextGenerationCost }
func (InstagramCaption) AnalyzesImages() bool { return true }
func (InstagramCaption) sealed()              {}

func (InstagramCaption) Instruction(prompt string, imageCount int) string {
	text := baseInstruction(ContentTypeInstagram, prompt)
	switch {
	case imageCount == 1:
		text += " 1 image has been provided. Describe the image and incorporate it into the caption."
	case imageCount > 1:
		text += fmt.Sprintf(" %d images have been provided. Describe the images and incorporate them into the caption.", imageCount)
		text += " Create a cohesive caption that ties all images together."
	}
	return text
}

func (InstagramCaption) Segments(raw string) []string { return []string{raw} }
func (InstagramCaption) SuccessMessage() string       { return "Content generated successfully!" }
func (InstagramCaption) FailureMessage() string       { return "Failed to generate content" }

func (LinkedInPost) Type() ContentType    { return ContentTypeLinkedIn }
func (LinkedInPost) Modality() Modality   { return ModalityText }
func (LinkedInPost) Cost() int            { return TextGenerationCost }
func (LinkedInPost) AnalyzesImages() bool { return false }
func (LinkedInPost) sealed()              {}

func (LinkedInPost) Instruction(prompt string, _ int) string {
	return baseInstruction(ContentTypeLinkedIn, prompt)
}

func (LinkedInPost) Segments(raw string) []string { return []string{raw} }
func (LinkedInPost) SuccessMessage() string       { return "Content generated successfully!" }
func (LinkedInPost) FailureMessage() string       { return "Failed to generate content" }

func (ImageArt) Type() ContentType    { return ContentTypeImage }
func (ImageArt) Modality() Modality   { return ModalityImage }
func (ImageArt) Cost() int            { return ImageGenerationCost }
func (ImageArt) AnalyzesImages() bool { return false }
func (ImageArt) sealed()              {}

// Instruction returns the prompt unchanged; image providers take the prompt only.
func (ImageArt) Instruction(prompt string, _ int) string { return prompt }

func (ImageArt) Segments(raw string) []string { return []string{raw} }
func (ImageArt) SuccessMessage() string       { return "Image generated successfully!" }
func (ImageArt) FailureMessage() string       { return "Image generation failed" }

// ImageExamplePrompts are suggestions offered to users of the image generator.
var ImageExamplePrompts = []string{
	"A serene mountain landscape at sunset with reflections in a lake",
	"A futuristic cityscape with flying vehicles and neon lights",
	"A photorealistic portrait of a smiling woman with curly hair",
	"A cute robot sitting in a cafe reading a newspaper",
	"An elegant product photo of a smartphone on a minimalist desk",
}
