package service

import (
	"fmt"
	"strings"
)

// moodEmojiEntry maps mood keywords to a representative emoji. First match
// wins, so more specific rows sit above broader ones.
type moodEmojiEntry struct {
	keywords [2]string
	emoji    string
}

var moodEmojiTable = []moodEmojiEntry{
	{[2]string{"fun", "playful"}, "😜"},
	{[2]string{"creative", "artistic"}, "🎭"},
	{[2]string{"professional", "business"}, "💼"},
	{[2]string{"romantic", "emotional"}, "❤️"},
	{[2]string{"tech", "modern"}, "🤖"},
	{[2]string{"travel", "adventure"}, "🌍"},
	{[2]string{"food", "lifestyle"}, "🍔"},
	{[2]string{"music", "entertainment"}, "🎵"},
	{[2]string{"fitness", "health"}, "🏃‍♂️"},
	{[2]string{"fashion", "style"}, "🎨"},
	{[2]string{"home", "interior"}, "🏠"},
	{[2]string{"pet", "animal"}, "🐾"},
	{[2]string{"nature", "environment"}, "🌱"},
	{[2]string{"gaming", "entertainment"}, "🎮"},
	{[2]string{"education", "learning"}, "📚"},
	{[2]string{"party", "celebration"}, "🎪"},
	{[2]string{"wellness", "mindfulness"}, "🧘‍♀️"},
	{[2]string{"automotive", "transport"}, "🚗"},
	{[2]string{"architecture", "design"}, "🏢"},
	{[2]string{"social media", "viral"}, "📱"},
	{[2]string{"movie", "tv"}, "🎬"},
	{[2]string{"sports", "athletics"}, "🏈"},
	{[2]string{"aviation", "flight"}, "✈️"},
	{[2]string{"marine", "ocean"}, "🚢"},
	{[2]string{"mountain", "hiking"}, "🏔️"},
	{[2]string{"beach", "summer"}, "🏖️"},
	{[2]string{"winter", "snow"}, "❄️"},
	{[2]string{"autumn", "fall"}, "🍂"},
	{[2]string{"spring", "bloom"}, "🌸"},
	{[2]string{"holiday", "christmas"}, "🎄"},
	{[2]string{"cozy", "warm"}, "🕯️"},
	{[2]string{"mystical", "magical"}, "✨"},
	{[2]string{"vintage", "retro"}, "📷"},
	{[2]string{"futuristic", "space"}, "🚀"},
	{[2]string{"minimalist", "simple"}, "⚪"},
	{[2]string{"bold", "strong"}, "💪"},
	{[2]string{"elegant", "sophisticated"}, "👑"},
	{[2]string{"casual", "relaxed"}, "😊"},
	{[2]string{"formal", "official"}, "🎯"},
	{[2]string{"energetic", "dynamic"}, "⚡"},
	{[2]string{"calm", "peaceful"}, "🧘‍♀️"},
	{[2]string{"inspirational", "motivational"}, "💡"},
	{[2]string{"special", "unique"}, "🌟"},
	{[2]string{"themed", "costume"}, "🎭"},
}

// defaultMoodEmoji is used when no keyword matches.
const defaultMoodEmoji = "✨"

// MoodEmoji looks up a representative emoji for a mood tag by keyword match.
// Parameters:
//   - mood: caller-chosen mood string, any casing.
// Returns:
//   - string: matched emoji, or the default sparkle.
func MoodEmoji(mood string) string {
	moodLower := strings.ToLower(mood)
	for _, entry := range moodEmojiTable {
		if strings.Contains(moodLower, entry.keywords[0]) || strings.Contains(moodLower, entry.keywords[1]) {
			return entry.emoji
		}
	}
	return defaultMoodEmoji
}

// moodName strips emoji and punctuation from a mood tag, leaving letters and
// spaces.
func moodName(mood string) string {
	var b strings.Builder
	for _, r := range mood {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// moodHashtag turns a mood tag into a single hashtag word.
func moodHashtag(mood string) string {
	return strings.ReplaceAll(moodName(mood), " ", "")
}

// TemplateCaptions synthesizes three styled captions for a mood and
// username. Pure function: identical inputs produce identical output. Used
// when the model answered but extraction found fewer than three captions.
// Parameters:
//   - mood: caller-chosen mood tag.
//   - username: requesting user's display name, embedded as a hashtag.
// Returns:
//   - []string: exactly three non-empty captions.
func TemplateCaptions(mood, username string) []string {
	emoji := MoodEmoji(mood)
	name := moodName(mood)
	tag := moodHashtag(mood)

	return []string{
		// Visual storytelling style
		fmt.Sprintf("📸 %s The way this %s scene unfolds is pure visual poetry. Every element, from the lighting to the composition, tells its own story. #%s #VisualPoetry #Storytelling #%s", emoji, name, tag, username),
		// Emotional connection style
		fmt.Sprintf("💫 %s There's something about %s that hits you right in the feels. This moment captures that energy perfectly. #%s #Feels #Moment #%s", emoji, name, tag, username),
		// Lifestyle and aspiration style
		fmt.Sprintf("🚀 %s This is what living the %s dream looks like. No filters, no faking - just pure authentic vibes. #%s #DreamLife #Authentic #%s", emoji, name, tag, username),
	}
}

// FallbackCaptions synthesizes three short captions for a mood and username.
// Pure function. Used when the model call itself failed, including after the
// rotated-key retry.
// Parameters:
//   - mood: caller-chosen mood tag.
//   - username: requesting user's display name, embedded as a hashtag.
// Returns:
//   - []string: exactly three non-empty captions.
func FallbackCaptions(mood, username string) []string {
	emoji := MoodEmoji(mood)
	name := moodName(mood)
	tag := moodHashtag(mood)

	return []string{
		fmt.Sprintf("Amazing %s %s vibes! ✨ #%s #Vibes #Mood #%s", emoji, name, tag, username),
		fmt.Sprintf("This is giving me major %s %s energy! 🔥 #%s #Energy #Goals #%s", emoji, name, tag, username),
		fmt.Sprintf("Living that %s %s life! 💫 #%s #Lifestyle #Mood #%s", emoji, name, tag, username),
	}
}
