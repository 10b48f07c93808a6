package ui

// Package ui contains the Fyne-based desktop front-end. A RootUI renders one
// row per download item and forwards user actions to the download service;
// item state only ever flows back through the service's event channel.
