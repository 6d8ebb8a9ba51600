package catalog

import "ndi_desktop/internal/domain"

var defaultApps = []domain.AppDefinition{
	{ID: "snake", Name: "Snake", Icon: "🐍", Category: "Jeux", Route: "/apps/snake"},
	{ID: "typing", Name: "Typing Speed", Icon: "⌨️", Category: "Outils", Route: "/apps/typing"},
	{ID: "word", Name: "Word", Icon: "📝", Category: "Bureautique", Route: "/apps/word"},
	{ID: "libreoffice", Name: "LibreOffice", Icon: "📄", Category: "Bureautique", Route: "/apps/libreoffice"},
	{ID: "cloud", Name: "OneDrive", Icon: "☁️", Category: "Outils", Route: "/apps/cloud"},
	{ID: "mail", Name: "Mail", Icon: "📧", Category: "Outils", Route: "/apps/mail"},
	{ID: "coffee", Name: "Café", Icon: "☕", Category: "Détente", Route: "/apps/coffee", FailureTask: "make-coffee-fail"},
	{ID: "chatbot", Name: "Copilot", Icon: "✨", Category: "IA", Route: "/apps/chatbot"},
	{ID: "server-shield", Name: "Server Shield", Icon: "🛡️", Category: "Outils", Route: "/apps/server-shield"},
	{ID: "bun", Name: "Inscription", Icon: "🥐", Category: "Détente", Route: "/apps/bun"},
	{ID: "secret-snake", Name: "Snake 2000", Icon: "🍎", Category: "Jeux", Route: "/apps/secret-snake", Secret: true},
}

var defaultTasks = []domain.TaskDefinition{
	{
		ID:               "open-snake",
		TriggerEventType: domain.EventAppOpened,
		ContentKey:       "open-snake.json",
		Validate:         AppIs("snake"),
		OnSuccess:        domain.Unlocks{Tasks: []string{"score-snake-30"}},
	},
	{
		ID:                       "score-snake-30",
		TriggerEventType:         "snake:gameOver",
		ContentKey:               "score-snake-30.json",
		Validate:                 ScoreAtLeast(30),
		IsBlocking:               true,
		AllowedAppsWhileBlocking: []string{"snake"},
		OnSuccess:                domain.Unlocks{Tasks: []string{"open-typing"}},
		OnFailure: domain.Unlocks{
			Tasks: []string{"open-typing"},
			Mails: []string{"snake-tips"},
		},
	},
	{
		ID:               "open-typing",
		TriggerEventType: domain.EventAppOpened,
		ContentKey:       "open-typing.json",
		Validate:         AppIs("typing"),
		OnSuccess:        domain.Unlocks{Tasks: []string{"wpm-25"}},
	},
	{
		ID:               "wpm-25",
		TriggerEventType: "typing:finished",
		ContentKey:       "wpm-25.json",
		Validate:         WPMAtLeast(25),
		OnSuccess: domain.Unlocks{
			Tasks: []string{"prepare-meeting-word"},
			Apps:  []string{"word"},
		},
		OnFailure: domain.Unlocks{
			Tasks: []string{"prepare-meeting-word"},
			Apps:  []string{"word"},
		},
	},
	{
		ID:               "prepare-meeting-word",
		TriggerEventType: "word:finished",
		ContentKey:       "prepare-meeting-word.json",
		Validate:         Always(domain.VerdictFailure),
		OnFailure: domain.Unlocks{
			Tasks: []string{"ask-ai"},
			Apps:  []string{"chatbot"},
			Mails: []string{"it-support"},
		},
	},
	{
		ID:               "ask-ai",
		TriggerEventType: "chatbot:interaction",
		ContentKey:       "ask-ai.json",
		OnSuccess: domain.Unlocks{
			Tasks: []string{"make-coffee-fail"},
			Apps:  []string{"coffee"},
		},
	},
	{
		ID:               "make-coffee-fail",
		TriggerEventType: "coffee:water-shortage",
		ContentKey:       "make-coffee-fail.json",
		Validate:         Always(domain.VerdictFailure),
		OnFailure: domain.Unlocks{
			Tasks: []string{"prepare-meeting-libreoffice"},
			Apps:  []string{"libreoffice"},
			Mails: []string{"ai-water"},
		},
	},
	{
		ID:               "prepare-meeting-libreoffice",
		TriggerEventType: "libreoffice:finished",
		ContentKey:       "prepare-meeting-libreoffice.json",
		OnSuccess: domain.Unlocks{
			Tasks: []string{"share-meeting-notes"},
			Apps:  []string{"cloud"},
		},
	},
	{
		ID:                       "share-meeting-notes",
		TriggerEventType:         "cloud:download-attempt",
		ContentKey:               "share-meeting-notes.json",
		Validate:                 Always(domain.VerdictFailure),
		IsBlocking:               true,
		AllowedAppsWhileBlocking: []string{"cloud", "server-shield"},
		OnFailure: domain.Unlocks{
			Tasks: []string{"repair-cloud-services"},
			Apps:  []string{"server-shield"},
		},
	},
	{
		ID:               "repair-cloud-services",
		TriggerEventType: "server-shield:victory",
		ContentKey:       "repair-cloud-services.json",
		FixesTask:        "share-meeting-notes",
		OnSuccess: domain.Unlocks{
			Tasks: []string{"register-nird"},
			Apps:  []string{"bun"},
			Mails: []string{"nird-invite"},
		},
	},
	{
		ID:               "register-nird",
		TriggerEventType: "bun:finished",
		ContentKey:       "register-nird.json",
		OnSuccess:        domain.Unlocks{Mails: []string{"thanks"}},
	},
}

var defaultMails = []domain.MailDefinition{
	{ID: "welcome", ContentKey: "mail-welcome.json", From: domain.Sender{Name: "Direction", Address: "direction@ndi.fr"}},
	{ID: "snake-tips", ContentKey: "mail-snake-tips.json", From: domain.Sender{Name: "Club Snake", Address: "club@snake.fr"}},
	{ID: "it-support", ContentKey: "mail-it-support.json", From: domain.Sender{Name: "Support informatique", Address: "support@ndi.fr"}},
	{ID: "ai-water", ContentKey: "mail-ai-water.json", From: domain.Sender{Name: "Collectif NIRD", Address: "contact@nird.fr"}},
	{ID: "nird-invite", ContentKey: "mail-nird-invite.json", From: domain.Sender{Name: "Collectif NIRD", Address: "contact@nird.fr"}},
	{ID: "thanks", ContentKey: "mail-thanks.json", From: domain.Sender{Name: "Collectif NIRD", Address: "contact@nird.fr"}},
}

// Default returns the story shipped with the desktop simulation.
func Default() *Catalog {
	c := New(defaultApps, defaultTasks, defaultMails)
	c.InitialTasks = []string{"open-snake"}
	c.InitialApps = []string{"mail", "snake", "typing"}
	c.InitialMails = []string{"welcome"}
	return c
}
