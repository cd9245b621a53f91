package moderation

// English is the built-in English pattern table.
var English = LanguageTable{
	Language: "en",
	Phrases: map[Category][]string{
		CategoryHateSpeech: {
			"nigger", "niggers", "nigga", "niggas", "niggaz", "nigguh",
			"sand nigger", "faggot", "faggots", "fagot", "fag", "fags",
			"dyke", "dykes", "tranny", "trannies", "chink", "chinks",
			"gook", "gooks", "spic", "spics", "kike", "kikes", "wetback",
			"wetbacks", "raghead", "ragheads", "towelhead", "towelheads",
			"beaner", "beaners", "heil hitler", "sieg heil", "gas the jews",
			"white power", "go back to africa",
		},
		CategoryHarassment: {
			"kys", "kill yourself", "kill urself", "kill ur self", "kill your self",
			"go kill yourself", "neck yourself", "hang yourself", "end yourself",
			"go die", "you should die", "i hope you die", "hope you die",
			"die in a fire", "nobody likes you", "no one likes you",
			"you are worthless", "you re worthless", "youre worthless",
			"you are pathetic", "you re pathetic", "i will kill you",
			"i ll kill you", "ill kill you", "i will find you",
			"i know where you live", "stfu", "gtfo", "shut the fuck up",
			"get the fuck out", "retard", "retards", "retarded", "you idiot",
			"you moron", "ugly bitch", "fat bitch",
		},
		CategoryProfanity: {
			"fuck", "fucks", "fucked", "fucker", "fuckers", "fucking", "fuckin",
			"motherfucker", "motherfuckers", "fck", "fuk", "fuq", "shit",
			"shits", "shitty", "bullshit", "bitch", "bitches", "bastard",
			"bastards", "asshole", "assholes", "ass", "dick", "dickhead",
			"cunt", "cunts", "pussy", "twat", "wanker", "cocksucker", "slut",
			"sluts", "whore", "whores", "son of a bitch", "piece of shit",
		},
		CategoryPhishing: {
			"free money", "free bitcoin", "free crypto", "free gift card",
			"free iphone", "claim now", "claim your prize", "claim your reward",
			"you have won", "you ve won", "congratulations you won",
			"verify your account", "confirm your password",
			"send me your password", "your account has been suspended",
			"double your bitcoin", "double your money", "guaranteed profit",
		},
	},
	Combos: []Combo{
		{Category: CategoryPhishing, Parts: []string{"click here", "claim"}},
		{Category: CategoryPhishing, Parts: []string{"click here", "prize"}},
		{Category: CategoryPhishing, Parts: []string{"click here", "reward"}},
		{Category: CategoryPhishing, Parts: []string{"click here", "winner"}},
		{Category: CategoryPhishing, Parts: []string{"click here", "verify"}},
		{Category: CategoryPhishing, Parts: []string{"click the link", "password"}},
	},
}
