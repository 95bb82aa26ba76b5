package slack

import "github.com/Strob0t/Boardroom/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(url string) notifier.Notifier { return NewNotifier(url) })
}
