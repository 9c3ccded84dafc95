package gateway

import (
	"context"
	"net/url"
	"strconv"

	"feed_gateway/internal/domain/notification/model"
	"feed_gateway/internal/platform"
)

// NotificationGateway 通知接口
type NotificationGateway interface {
	FetchNotifications(ctx context.Context, token string, page, perPage int, unreadOnly bool) ([]model.Notification, *platform.Meta, error)
	MarkRead(ctx context.Context, token, id string) error
	MarkAllRead(ctx context.Context, token string) error
}

type notificationGateway struct {
	client *platform.Client
}

// NewNotificationGateway 创建通知网关
// 已读状态随时在变，这条通道不走缓存
func NewNotificationGateway(client *platform.Client) NotificationGateway {
	return &notificationGateway{client: client}
}

func (g *notificationGateway) FetchNotifications(ctx context.Context, token string, page, perPage int, unreadOnly bool) ([]model.Notification, *platform.Meta, error) {
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	if unreadOnly {
		q.Set("unread_only", "true")
	}

	var items []model.Notification
	meta, err := g.client.Get(ctx, token, "/notifications", q, &items)
	if err != nil {
		return nil, nil, err
	}
	return items, meta, nil
}

func (g *notificationGateway) MarkRead(ctx context.Context, token, id string) error {
	_, err := g.client.Post(ctx, token, "/notifications/"+id+"/read", nil, nil)
	return err
}

func (g *notificationGateway) MarkAllRead(ctx context.Context, token string) error {
	_, err := g.client.Post(ctx, token, "/notifications/read-all", nil, nil)
	return err
}
