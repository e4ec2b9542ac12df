package classifier

// Static classification tables. Exact domain matches win; suffix matches
// cover subdomains; anything unknown is neutral.

var productiveDomains = map[string]struct{}{
	"github.com":            {},
	"gitlab.com":            {},
	"stackoverflow.com":     {},
	"stackexchange.com":     {},
	"developer.mozilla.org": {},
	"docs.google.com":       {},
	"notion.so":             {},
	"figma.com":             {},
	"linear.app":            {},
	"jira.atlassian.com":    {},
	"atlassian.net":         {},
	"leetcode.com":          {},
	"coursera.org":          {},
	"udemy.com":             {},
	"edx.org":               {},
	"khanacademy.org":       {},
	"wikipedia.org":         {},
	"arxiv.org":             {},
	"scholar.google.com":    {},
	"kaggle.com":            {},
	"golang.org":            {},
	"go.dev":                {},
	"pkg.go.dev":            {},
	"python.org":            {},
	"rust-lang.org":         {},
	"medium.com":            {},
	"dev.to":                {},
	"overleaf.com":          {},
	"replit.com":            {},
	"codepen.io":            {},
}

var distractionDomains = map[string]struct{}{
	"facebook.com":     {},
	"instagram.com":    {},
	"twitter.com":      {},
	"x.com":            {},
	"tiktok.com":       {},
	"reddit.com":       {},
	"twitch.tv":        {},
	"netflix.com":      {},
	"hulu.com":         {},
	"disneyplus.com":   {},
	"primevideo.com":   {},
	"9gag.com":         {},
	"buzzfeed.com":     {},
	"pinterest.com":    {},
	"snapchat.com":     {},
	"tumblr.com":       {},
	"steampowered.com": {},
	"epicgames.com":    {},
	"roblox.com":       {},
	"miniclip.com":     {},
}

var neutralDomains = map[string]struct{}{
	"gmail.com":           {},
	"mail.google.com":     {},
	"outlook.com":         {},
	"calendar.google.com": {},
	"maps.google.com":     {},
	"amazon.com":          {},
	"ebay.com":            {},
	"weather.com":         {},
	"nytimes.com":         {},
	"bbc.com":             {},
	"cnn.com":             {},
	"theguardian.com":     {},
	"linkedin.com":        {},
	"slack.com":           {},
	"discord.com":         {},
	"zoom.us":             {},
	"meet.google.com":     {},
	"spotify.com":         {},
	"paypal.com":          {},
	"chase.com":           {},
}

// videoDomains take the title/channel keyword-scoring branch instead of the
// domain-set lookup.
var videoDomains = map[string]struct{}{
	"youtube.com":   {},
	"m.youtube.com": {},
	"youtu.be":      {},
}

var eduKeywords = []string{
	"tutorial",
	"course",
	"lecture",
	"learn",
	"learning",
	"lesson",
	"explained",
	"explainer",
	"how to",
	"guide",
	"documentary",
	"programming",
	"coding",
	"engineering",
	"mathematics",
	"physics",
	"chemistry",
	"biology",
	"history",
	"science",
	"algorithm",
	"interview prep",
	"crash course",
	"masterclass",
	"deep dive",
	"walkthrough",
	"fundamentals",
	"introduction to",
}

var entertainKeywords = []string{
	"funny",
	"prank",
	"reaction",
	"gaming",
	"gameplay",
	"vlog",
	"challenge",
	"compilation",
	"meme",
	"memes",
	"highlights",
	"trailer",
	"music video",
	"official video",
	"unboxing",
	"haul",
	"mukbang",
	"celebrity",
	"gossip",
	"drama",
	"tiktok",
	"shorts",
	"try not to laugh",
	"satisfying",
	"asmr",
}
