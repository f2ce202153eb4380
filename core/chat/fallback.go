package chat

import (
	"regexp"
	"strings"
)

type rule struct {
	name    string
	match   *regexp.Regexp
	respond func(hasNotes bool) string
}

func keywords(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)`)
}

func withNotes(yes, no string) func(bool) string {
	return func(hasNotes bool) string {
		if hasNotes {
			return yes
		}
		return no
	}
}

func always(resp string) func(bool) string {
	return func(bool) string { return resp }
}

// fallbackRules are evaluated in order against the lowercased message; the first match wins.
// Keywords overlap (e.g. "help with a quiz"), so the order is part of the behaviour.
var fallbackRules = []rule{
	{
		name:  "greeting",
		match: keywords(`hello\b`, `hi\b`, `hey\b`, `greetings\b`, `good (morning|afternoon|evening)\b`),
		respond: withNotes(
			"Hello! I'm your AI Study Buddy. I can see your notes, so ask me anything about your subjects!",
			"Hello! I'm your AI Study Buddy. Add some notes and I'll help you study them!",
		),
	},
	{
		name:  "help",
		match: keywords(`help`, `assist`, `support\b`),
		respond: always("I can help you understand your notes, explain concepts, quiz you on a topic " +
			"or plan your exam revision. What would you like to do?"),
	},
	{
		name:  "explanation",
		match: keywords(`explain`, `what is\b`, `what are\b`, `how does\b`, `how do\b`, `define\b`, `meaning\b`),
		respond: withNotes(
			"Let's break it down. Tell me which topic from your notes you'd like explained and I'll walk you through it step by step.",
			"I'd love to explain it! Add notes on the topic first so I can base my explanation on what you're studying.",
		),
	},
	{
		name:  "quiz",
		match: keywords(`quiz`, `test me\b`, `practice question`, `questions?\b`),
		respond: withNotes(
			"Great idea! Pick a chapter from your notes and I'll ask you a few questions about it.",
			"Great idea! Add some notes first, then I can quiz you on them.",
		),
	},
	{
		name:  "difficulty",
		match: keywords(`difficult`, `hard\b`, `confus`, `struggl`, `stuck\b`, `don't understand\b`, `do not understand\b`),
		respond: always("Don't worry, tricky topics take time. Let's take it one small step at a time: " +
			"which part is confusing you the most?"),
	},
	{
		name:  "exam",
		match: keywords(`exam`, `test\b`, `prepar`, `revis`, `study plan\b`),
		respond: always("For exam prep, review a chapter at a time, summarize each note in your own words " +
			"and test yourself regularly. Which subject is your exam on?"),
	},
	{
		name:    "thanks",
		match:   keywords(`thank`, `thx\b`, `appreciate`),
		respond: always("You're welcome! Keep up the great work. Anything else you'd like to go over?"),
	},
}

func defaultResponse(hasNotes bool) string {
	if hasNotes {
		return "That's an interesting question! Based on your notes, try to connect it to the chapter you're " +
			"studying. Could you tell me more about what you'd like to learn?"
	}
	return "That's an interesting question! Add some notes so I can give you answers tailored to what you're studying."
}

// Fallback returns the canned response of the first rule matching message.
func Fallback(message string, hasNotes bool) string {
	msg := strings.ToLower(message)
	for _, r := range fallbackRules {
		if r.match.MatchString(msg) {
			return r.respond(hasNotes)
		}
	}
	return defaultResponse(hasNotes)
}
