package mocks

//go:generate mockgen -destination=./mock_price_source.go -package=mocks github.com/rxtech-lab/argo-ml/pkg/marketdata PriceSource
//go:generate mockgen -destination=./mock_repository.go -package=mocks github.com/rxtech-lab/argo-ml/internal/storage Repository
//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-ml/internal/broker Broker
