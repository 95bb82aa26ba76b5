package main

// Notifier blank imports. Each import registers a webhook notifier that
// buildNotifiers can select by name.

import (
	_ "github.com/Strob0t/Boardroom/internal/adapter/discord"
	_ "github.com/Strob0t/Boardroom/internal/adapter/slack"
)
