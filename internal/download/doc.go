package download

// Package download implements the download orchestration engine on top of an
// extract.Client. It owns the ordered item registry, runs one worker
// goroutine per started item, applies progress, cancellation and the
// existing-file check, classifies failures and publishes every state change
// as a model.Event snapshot on a channel.
