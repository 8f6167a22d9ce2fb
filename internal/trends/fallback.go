package trends

// DefaultFallback is the static keyword list served when every upstream
// source fails. It must never be empty; NewService validates this at
// construction so a misconfiguration fails at startup, not at request time.
var DefaultFallback = []string{
	// AI / tech
	"ChatGPT tips", "Claude AI", "AI image generation", "Midjourney guide", "Copilot workflow",
	"AI automation", "GPT-4o", "AI coding assistants", "Sora AI", "no-code automation",
	// economy / investing
	"bitcoin outlook", "gold investment", "US stocks", "dividend stocks", "ETF picks",
	"housing market outlook", "rate cuts", "currency forecast", "tax season tips", "youth benefits",
	// IT / gadgets
	"iPhone 16", "Galaxy S25", "MacBook M4", "PS5 Pro", "Nintendo Switch 2",
	"wireless earbuds", "best tablets", "monitor picks", "keyboard picks", "mouse picks",
	// lifestyle / health
	"diet meal plans", "home workouts", "gym routines", "better sleep", "meditation apps",
	"restaurant picks", "cafe picks", "meal kits", "air fryer recipes", "intermittent fasting",
	// travel / culture
	"domestic travel spots", "Jeju restaurants", "Japan travel", "Europe travel", "flight deals",
	"Netflix picks", "streaming picks", "new series", "K-drama", "movie reviews",
	// career / education
	"job change prep", "interview tips", "resume writing", "learn to code", "English conversation",
	"certifications", "side hustles", "remote work tips", "freelancing", "online courses",
	// hobbies
	"camping gear", "hiking trails", "running for beginners", "home cafe", "book picks",
	"game picks", "board games", "lego sets", "pet care", "houseplants",
}
