package extract

// Package extract defines the contract of the external extraction service
// (metadata lookup and content transfer with progress events) and provides
// adapters for the yt-dlp binary (via github.com/lrstanley/go-ytdlp) and for
// the pure Go client github.com/kkdai/youtube/v2, plus caching and rate
// limiting decorators.
