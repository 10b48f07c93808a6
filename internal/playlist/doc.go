package playlist

// Package playlist expands YouTube playlist URLs into per-video watch URLs
// using github.com/ytget/ytdlp/v2, so each video becomes its own download
// item.
