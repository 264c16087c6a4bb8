// Package repository содержит реализацию долговременных слотов клиента в PostgreSQL.
//
// Слот корзины хранит сериализованный снимок корзины под ключом «имя
// магазина + идентификатор корзины», слот учётных данных — кэшированный
// токен и роль пользователя. Оба слота переживают перезапуск клиента.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/taash/storefront-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSlotNotFound возвращается, если слот с указанным ключом отсутствует.
var ErrSlotNotFound = errors.New("slot not found")

// PostgresRepository предоставляет доступ к долговременным слотам в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках: сериализационных
// конфликтах, дедлоках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveCart сохраняет снимок корзины целиком. Последняя запись выигрывает:
// слот разделяется всеми вкладками одного профиля, межвкладочных блокировок нет.
func (r *PostgresRepository) SaveCart(ctx context.Context, storeName, cartID string, cart model.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO cart_slots (store_name, cart_id, payload, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (store_name, cart_id)
			 DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
			storeName, cartID, payload,
		)
		if err != nil {
			return fmt.Errorf("upsert cart slot: %w", err)
		}
		return nil
	})
}

// LoadCart возвращает сохранённый снимок корзины.
func (r *PostgresRepository) LoadCart(ctx context.Context, storeName, cartID string) (model.Cart, error) {
	var payload []byte

	err := r.withRetry(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx,
			`SELECT payload FROM cart_slots WHERE store_name = $1 AND cart_id = $2`,
			storeName, cartID,
		)
		if err := row.Scan(&payload); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("select cart slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var cart model.Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	// Защита от повреждённого слота: позиции с нулевым или отрицательным
	// количеством отбрасываются, а не протаскиваются в бизнес-логику.
	clean := make(model.Cart, 0, len(cart))
	for _, l := range cart {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		clean = append(clean, l)
	}

	return clean, nil
}

// DeleteCart удаляет слот корзины. Отсутствие слота не является ошибкой.
func (r *PostgresRepository) DeleteCart(ctx context.Context, storeName, cartID string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM cart_slots WHERE store_name = $1 AND cart_id = $2`,
			storeName, cartID,
		)
		if err != nil {
			return fmt.Errorf("delete cart slot: %w", err)
		}
		return nil
	})
}

// SaveCredential сохраняет кэшированный токен и роль субъекта.
func (r *PostgresRepository) SaveCredential(ctx context.Context, storeName string, session model.Session) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO credential_slots (store_name, subject_id, token, role, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (store_name, subject_id)
			 DO UPDATE SET token = EXCLUDED.token, role = EXCLUDED.role, updated_at = now()`,
			storeName, session.SubjectID, session.Token, string(session.Role),
		)
		if err != nil {
			return fmt.Errorf("upsert credential slot: %w", err)
		}
		return nil
	})
}

// LoadCredential возвращает кэшированные учётные данные субъекта.
func (r *PostgresRepository) LoadCredential(ctx context.Context, storeName, subjectID string) (*model.Session, error) {
	var (
		token string
		role  string
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx,
			`SELECT token, role FROM credential_slots WHERE store_name = $1 AND subject_id = $2`,
			storeName, subjectID,
		)
		if err := row.Scan(&token, &role); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("select credential slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.Session{
		SubjectID: subjectID,
		Role:      model.Role(role),
		Token:     token,
	}, nil
}

// DeleteCredential удаляет кэшированные учётные данные. Повторный вызов — no-op.
func (r *PostgresRepository) DeleteCredential(ctx context.Context, storeName, subjectID string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM credential_slots WHERE store_name = $1 AND subject_id = $2`,
			storeName, subjectID,
		)
		if err != nil {
			return fmt.Errorf("delete credential slot: %w", err)
		}
		return nil
	})
}
