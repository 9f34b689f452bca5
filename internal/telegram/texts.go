package telegram

// UI texts in English
const (
	startText = "👋 I send your FitPal meal and workout reminders.\n\n" +
		"/status — pending reminders\n" +
		"/meal [HH:MM] — which meal window you are in\n" +
		"/refresh — rebuild reminders from your plan\n" +
		"/cancel — cancel all pending reminders"
	statusEmpty     = "No reminders pending."
	statusTitleFmt  = "🧾 %d reminders scheduled:\n"
	statusLineFmt   = "• %s — %s\n"
	mealFmt         = "🍽 At %s it is %s time."
	refreshFmt      = "✅ %d reminders scheduled."
	refreshDisabled = "⏸ Reminders are turned off in your FitPal profile."
	cancelFmt       = "Cancelled %d reminders. They come back on the next refresh."
)
