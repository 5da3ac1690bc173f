package application

import (
	"github.com/furniro/messaging/internal/repository"
	"github.com/furniro/messaging/internal/tx"
	"go.uber.org/zap"
)

type Service struct {
	repo repository.Repository
	tx   tx.Transactor
	log  *zap.Logger
}

func New(repo repository.Repository, transactor tx.Transactor, log *zap.Logger) *Service {
	return &Service{repo: repo, tx: transactor, log: log}
}
