package platform

// Package platform contains OS/platform integration: the default downloads
// location, output directory creation and file naming rules shared by the
// engine's duplicate check and the extraction clients.
