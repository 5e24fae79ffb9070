package repository

import (
	"github.com/Freeeeeet/shuttle_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager открывает транзакции, которые подхватывают все репозитории пакета
type TxManager struct {
	*base.Repository
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{Repository: base.NewRepository(pool)}
}
