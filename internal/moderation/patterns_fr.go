package moderation

// French is the built-in French pattern table.
var French = LanguageTable{
	Language: "fr",
	Phrases: map[Category][]string{
		CategoryHateSpeech: {
			"negre", "negres", "negresse", "sale noir", "sale noire",
			"sale arabe", "sale juif", "sale juive", "sale negre",
			"sale race", "sale chinois", "bougnoule", "bougnoules", "youpin",
			"youpins", "youtre", "bicot", "bicots", "sale pede", "pede",
			"pedes", "tarlouze", "tarlouzes", "chintok", "chintoks", "bamboula",
			"mort aux juifs", "mort aux arabes", "retourne en afrique",
		},
		CategoryHarassment: {
			"va mourir", "va crever", "va te pendre", "suicide toi",
			"suicides toi", "tue toi", "tues toi", "ferme ta gueule", "ftg",
			"ta gueule", "personne ne t aime", "t es nul", "tu es nul",
			"t es moche", "je vais te tuer", "je vais te retrouver",
			"je sais ou tu habites", "debile mental",
		},
		CategoryProfanity: {
			"putain", "putains", "merde", "merdes", "connard", "connards",
			"connasse", "connasses", "salope", "salopes", "salaud", "salauds",
			"encule", "encules", "enculer", "batard", "batards", "pute",
			"putes", "fils de pute", "fdp", "nique ta mere", "ntm", "niquer",
			"va te faire foutre", "trou du cul", "petasse", "fais chier",
		},
		CategoryPhishing: {
			"argent gratuit", "argent facile", "vous avez gagne",
			"reclamez votre prix", "reclamez votre cadeau",
			"verifiez votre compte", "confirmez votre mot de passe",
			"envoyez votre mot de passe", "doublez votre argent",
		},
	},
	Combos: []Combo{
		{Category: CategoryPhishing, Parts: []string{"cliquez ici", "gagne"}},
		{Category: CategoryPhishing, Parts: []string{"cliquez ici", "cadeau"}},
		{Category: CategoryPhishing, Parts: []string{"cliquez ici", "gratuit"}},
		{Category: CategoryPhishing, Parts: []string{"cliquez ici", "reclamer"}},
		{Category: CategoryPhishing, Parts: []string{"cliquez ici", "verifier"}},
	},
}
