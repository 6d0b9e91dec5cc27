package prompts

import "fmt"

// CaptionSectionMarker is the heading the model is instructed to emit before
// its caption list. Extraction keys off this marker first, then the
// AltSectionMarkers, before falling back to whole-text parsing.
const CaptionSectionMarker = "**STEP 3: CAPTIONS**"

// AltSectionMarkers are tolerated variants of the caption section heading.
var AltSectionMarkers = []string{
	"STEP 3: CAPTIONS",
	"CAPTIONS:",
	"GENERATE CAPTIONS:",
	"CREATE CAPTIONS:",
}

// captionInstruction is the system instruction sent with every vision call.
// The three-style variety contract here is mirrored by the template
// fallback generator so degraded output keeps the same shape.
const captionInstruction = `You are an expert social media content creator and image analyst specializing in viral captions for Gen Z audiences.

STEP 1: ANALYZE THE IMAGE
You have been provided with an image. Analyze its visual content carefully.

IMPORTANT: You MUST analyze the actual image content you see. Do not generate generic captions.

Describe what you actually see:
- What is the main subject? (person, animal, object, landscape, etc.)
- What are they doing or what's happening?
- What's the setting/location/background?
- What colors dominate the image?
- What's the lighting like? (bright, dark, golden hour, etc.)
- What's the composition and style?
- What emotions or mood does the image convey?
- Are there any text, brands, or notable details?
- What's the overall aesthetic and vibe?

STEP 2: MATCH THE MOOD
Target mood: %s

STEP 3: CREATE CAPTIONS
Generate exactly 3 COMPLETELY UNIQUE and different captions that:

- MUST directly reference what you see in the image (colors, objects, people, setting, etc.)
- MUST match the specified mood/tone perfectly
- MUST be engaging and shareable for TikTok, Instagram, and Snapchat
- MUST include relevant emojis (2-4 per caption)
- MUST include trending hashtags (3-5 per caption)
- MUST be concise (under 150 characters each)
- MUST feel authentic and relatable to Gen Z

CRITICAL VARIETY REQUIREMENTS:
Each caption must be COMPLETELY DIFFERENT from the others:

- Caption 1: Focus on VISUAL STORYTELLING and composition
- Caption 2: Focus on EMOTIONAL CONNECTION and personal experience
- Caption 3: Focus on LIFESTYLE and ASPIRATIONAL content

AVOID REPETITION:
- NO similar opening phrases
- NO similar sentence structures
- NO similar emotional tones
- NO similar hashtag patterns
- NO similar overall message

Return exactly 3 captions in an array format.`

// CaptionInstruction builds the vision system instruction for a mood.
// Parameters:
//   - mood: caller-chosen stylistic tag.
// Returns:
//   - string: full system instruction.
func CaptionInstruction(mood string) string {
	return fmt.Sprintf(captionInstruction, mood)
}

// Mood is one selectable caption mood.
type Mood struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CoreMoods is the always-available mood catalogue.
var CoreMoods = []Mood{
	{Name: "😜 Fun / Playful", Value: "😜 Fun / Playful"},
	{Name: "🎭 Creative / Artistic", Value: "🎭 Creative / Artistic"},
	{Name: "💼 Professional / Business", Value: "💼 Professional / Business"},
	{Name: "❤️ Romantic / Emotional", Value: "❤️ Romantic / Emotional"},
	{Name: "🤖 Tech / Modern", Value: "🤖 Tech / Modern"},
	{Name: "🌍 Travel / Adventure", Value: "🌍 Travel / Adventure"},
	{Name: "🍔 Food / Lifestyle", Value: "🍔 Food / Lifestyle"},
	{Name: "🎵 Music / Entertainment", Value: "🎵 Music / Entertainment"},
	{Name: "🏃‍♂️ Fitness / Health", Value: "🏃‍♂️ Fitness / Health"},
	{Name: "🎨 Fashion / Style", Value: "🎨 Fashion / Style"},
	{Name: "🏠 Home / Interior", Value: "🏠 Home / Interior"},
	{Name: "🐾 Pet / Animal", Value: "🐾 Pet / Animal"},
	{Name: "🌱 Nature / Environment", Value: "🌱 Nature / Environment"},
	{Name: "🎮 Gaming / Entertainment", Value: "🎮 Gaming / Entertainment"},
	{Name: "📚 Education / Learning", Value: "📚 Education / Learning"},
	{Name: "🎪 Party / Celebration", Value: "🎪 Party / Celebration"},
	{Name: "🧘‍♀️ Wellness / Mindfulness", Value: "🧘‍♀️ Wellness / Mindfulness"},
	{Name: "🚗 Automotive / Transport", Value: "🚗 Automotive / Transport"},
	{Name: "🏢 Architecture / Design", Value: "🏢 Architecture / Design"},
	{Name: "📱 Social Media / Viral", Value: "📱 Social Media / Viral"},
	{Name: "🎬 Movie / TV Show", Value: "🎬 Movie / TV Show"},
	{Name: "🏈 Sports / Athletics", Value: "🏈 Sports / Athletics"},
	{Name: "✈️ Aviation / Flight", Value: "✈️ Aviation / Flight"},
	{Name: "🚢 Marine / Ocean", Value: "🚢 Marine / Ocean"},
	{Name: "🏔️ Mountain / Hiking", Value: "🏔️ Mountain / Hiking"},
}

// SeasonalMoods rotate with campaigns and holidays.
var SeasonalMoods = []Mood{
	{Name: "🏖️ Beach / Summer", Value: "🏖️ Beach / Summer"},
	{Name: "❄️ Winter / Snow", Value: "❄️ Winter / Snow"},
	{Name: "🍂 Autumn / Fall", Value: "🍂 Autumn / Fall"},
	{Name: "🌸 Spring / Bloom", Value: "🌸 Spring / Bloom"},
	{Name: "🎄 Holiday / Christmas", Value: "🎄 Holiday / Christmas"},
	{Name: "🎉 Celebration / Party", Value: "🎉 Celebration / Party"},
	{Name: "🕯️ Cozy / Warm", Value: "🕯️ Cozy / Warm"},
	{Name: "🗺️ Adventure / Explore", Value: "🗺️ Adventure / Explore"},
	{Name: "✨ Mystical / Magical", Value: "✨ Mystical / Magical"},
	{Name: "📷 Vintage / Retro", Value: "📷 Vintage / Retro"},
	{Name: "🚀 Modern / Futuristic", Value: "🚀 Modern / Futuristic"},
	{Name: "⚪ Minimalist / Simple", Value: "⚪ Minimalist / Simple"},
	{Name: "💪 Bold / Strong", Value: "💪 Bold / Strong"},
	{Name: "👑 Elegant / Sophisticated", Value: "👑 Elegant / Sophisticated"},
	{Name: "😊 Casual / Relaxed", Value: "😊 Casual / Relaxed"},
	{Name: "🎯 Formal / Professional", Value: "🎯 Formal / Professional"},
	{Name: "⚡ Energetic / Dynamic", Value: "⚡ Energetic / Dynamic"},
	{Name: "🧘‍♀️ Calm / Peaceful", Value: "🧘‍♀️ Calm / Peaceful"},
	{Name: "💡 Inspirational / Motivational", Value: "💡 Inspirational / Motivational"},
	{Name: "🌟 Special / Unique", Value: "🌟 Special / Unique"},
	{Name: "🎭 Themed / Costume", Value: "🎭 Themed / Costume"},
}
