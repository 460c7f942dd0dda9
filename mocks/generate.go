package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-fx/internal/broker Client
//go:generate mockgen -destination=./mock_signal_provider.go -package=mocks github.com/rxtech-lab/argo-fx/internal/strategy SignalProvider
//go:generate mockgen -destination=./mock_quote_source.go -package=mocks github.com/rxtech-lab/argo-fx/internal/currency QuoteSource
//go:generate mockgen -destination=./mock_notifier.go -package=mocks github.com/rxtech-lab/argo-fx/internal/notifier TextNotifier
