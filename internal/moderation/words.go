// Package moderation provides the profanity predicate applied to chat text
// before it is broadcast.
package moderation

// DefaultWords is the built-in word list. Deployments extend it with
// PROFANITY_WORDS.
var DefaultWords = []string{
	"arse",
	"arsehole",
	"ass",
	"asshole",
	"bastard",
	"bitch",
	"bollocks",
	"bullshit",
	"crap",
	"cunt",
	"damn",
	"dick",
	"dickhead",
	"douche",
	"fuck",
	"fucked",
	"fucker",
	"fucking",
	"motherfucker",
	"piss",
	"prick",
	"pussy",
	"shit",
	"shitty",
	"slut",
	"twat",
	"wanker",
	"whore",
}
