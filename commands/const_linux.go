package commands

const (
	_etc = "/usr/local/etc/sheetrollup"
	_var = "/usr/local/var/sheetrollup"

	DEFAULT_WORKDIR     = _var
	DEFAULT_CONFIG      = _etc + "/sheetrollup.yaml"
	DEFAULT_CREDENTIALS = _etc + "/.google/credentials.json"
	DEFAULT_SEENSET     = _var + "/seenset.json"
)
