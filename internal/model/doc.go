package model

// Package model defines domain data structures shared by the engine and its
// front-ends: download items, item status values and the state-change events
// the engine publishes. Items are handed out as snapshots, never as live
// pointers into engine state.
