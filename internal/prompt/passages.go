package prompt

// Built-in passages keep races running when the curated pool is empty or the
// database is unreachable. Grouped by theme; "general" doubles as the default.
var builtinPassages = map[string][]string{
	"general": {
		"The quick brown fox jumps over the lazy dog while the farmer watches from the porch, wondering whether the fence needs mending before the autumn rains arrive.",
		"Every morning the city wakes in stages, first the bakers and the bus drivers, then the office towers filling floor by floor until the streets below hum with purpose.",
		"A good cup of coffee asks very little of you, only that you stop for a moment, hold something warm, and let the day begin on your own terms.",
		"Maps are honest about distance but silent about effort, which is why the shortest route on paper is so often the longest one on foot.",
	},
	"science": {
		"Light from the nearest star beyond our sun takes more than four years to reach us, so every glance at the night sky is a look backward through time.",
		"Water is one of the few substances that expands when it freezes, which is why ice floats and why lakes freeze from the top down instead of the bottom up.",
		"The honeybee communicates the direction and distance of food through a dance, translating geography into movement that the rest of the hive can read.",
	},
	"literature": {
		"It was the best of times, it was the worst of times, it was the age of wisdom, it was the age of foolishness, it was the epoch of belief, it was the epoch of incredulity.",
		"Call me Ishmael. Some years ago, never mind how long precisely, having little or no money in my purse, and nothing particular to interest me on shore, I thought I would sail about a little.",
		"All happy families are alike; each unhappy family is unhappy in its own way, and the house of the Oblonskys was in a state of confusion.",
	},
	"technology": {
		"The first computers filled entire rooms and consumed enough power to light a small town, yet held less memory than a single photograph does today.",
		"A well named variable is a small act of kindness to the next person who reads the code, and that next person is very often your future self.",
		"Networks fail in ways their designers never imagined, which is why the most reliable systems are the ones built to expect failure rather than prevent it.",
	},
	"proverbs": {
		"A journey of a thousand miles begins with a single step, and the step after that, and the thousands of unremarkable steps nobody writes proverbs about.",
		"Measure twice and cut once, for wood remembers every mistake longer than the carpenter does.",
		"The best time to plant a tree was twenty years ago. The second best time is now.",
	},
}
