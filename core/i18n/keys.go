package i18n

// Message keys shared by every bundle.
const (
	LanguageName = "language_name"

	Welcome        = "welcome"
	Help           = "help"
	UnknownCommand = "unknown_command"
	SelectOption   = "select_option"

	CurrencyPrompt  = "currency_prompt"
	InvalidCurrency = "invalid_currency"
	DatePrompt      = "date_prompt"
	InvalidDate     = "invalid_date"
	ExchangeCourse  = "exchange_course"
	NoData          = "no_data"

	SourceUnavailable      = "source_unavailable"
	DataCorrupt            = "data_corrupt"
	RatesNotFound          = "rates_not_found"
	RateNotFound           = "rate_not_found"
	RequestProcessingError = "request_processing_error"

	ButtonGo        = "button_go"
	ButtonLanguage  = "button_language"
	ButtonHelp      = "button_help"
	ButtonYesterday = "button_yesterday"
	ButtonToday     = "button_today"
	ButtonRepeat    = "button_repeat"

	CommandStart     = "command_start"
	CommandGo        = "command_go"
	CommandToday     = "command_today"
	CommandYesterday = "command_yesterday"
	CommandLanguage  = "command_language"
	CommandHelp      = "command_help"
)
