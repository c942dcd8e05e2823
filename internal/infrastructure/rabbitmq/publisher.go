// Package rabbitmq は予約イベントを RabbitMQ に配信する。
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
)

// 配信先のキュー。ルーティングキーはキュー名と同じ
var queues = []booking.EventType{booking.EventConfirmed, booking.EventCancelled}

// channel は amqp.Channel のうち配信に使う操作
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func() (channel, func() error, error)

// Publisher は永続キューにイベントを送る
// チャネルが閉じていれば1回だけ再接続して再送する
type Publisher struct {
	mu        sync.Mutex
	dial      dialFunc
	ch        channel
	closeConn func() error
}

// NewPublisher は RabbitMQ に接続し、キューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	return newPublisher(func() (channel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("チャネル作成に失敗しました: %w", err)
		}
		return ch, conn.Close, nil
	})
}

func newPublisher(dial dialFunc) (*Publisher, error) {
	p := &Publisher{dial: dial}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	ch, closeConn, err := p.dial()
	if err != nil {
		return err
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(string(q), true, false, false, false, nil); err != nil {
			_ = ch.Close()
			if closeConn != nil {
				_ = closeConn()
			}
			return fmt.Errorf("キュー %s の宣言に失敗しました: %w", q, err)
		}
	}
	p.ch = ch
	p.closeConn = closeConn
	return nil
}

// Publish はイベントを JSON で永続配信する
func (p *Publisher) Publish(ctx context.Context, e booking.Event) error {
	if e.Type != booking.EventConfirmed && e.Type != booking.EventCancelled {
		return fmt.Errorf("未対応のイベント種別です: %s", e.Type)
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.BookingID + ":" + string(e.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, "", string(e.Type), false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		logger.Warn("RabbitMQ チャネルが閉じているため再接続します", zap.String("event", string(e.Type)))
		p.closeLocked()
		if err = p.connect(); err != nil {
			return err
		}
		err = p.ch.PublishWithContext(ctx, "", string(e.Type), false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("イベント配信に失敗: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.closeConn != nil {
		_ = p.closeConn()
		p.closeConn = nil
	}
}
