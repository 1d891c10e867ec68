// Package notify sends customer emails when an order reaches a status the
// customer cares about.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateShipped   = "order_shipped.html"
	TemplateDelivered = "order_delivered.html"
)

// Statuses that trigger an email. Kept as plain strings so this package
// does not depend on the order model.
const (
	statusShipped   = "SHIPPED"
	statusDelivered = "DELIVERED"
)

// Message is a rendered email ready for a Transport.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Notice describes an order that just changed status.
type Notice struct {
	OrderID      string
	Status       string
	CustomerName string
	Email        string
}

// Outcome of a dispatch attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result reports what happened to a notification.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Template string  `json:"template,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Sent reports whether an email went out.
func (r Result) Sent() bool { return r.Outcome == OutcomeSent }

// Config holds dispatcher options.
type Config struct {
	// From is the sender address, e.g. `Seoul Glow <orders@seoulglow.shop>`.
	From          string
	StoreName     string
	MeterProvider metric.MeterProvider
}

type templateData struct {
	StoreName         string
	OrderNumber       string
	CustomerName      string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery string
}

type rule struct {
	template string
	subject  string
}

var rules = map[string]rule{
	statusShipped:   {template: TemplateShipped, subject: "Your order #%s has shipped"},
	statusDelivered: {template: TemplateDelivered, subject: "Your order #%s has been delivered"},
}

// Dispatcher picks a template for an order status, renders it and hands the
// result to a Transport. It never returns delivery errors to the caller.
type Dispatcher struct {
	transport Transport
	cfg       Config
	templates *template.Template
	sent      metric.Int64Counter
}

// NewDispatcher parses the embedded templates and registers metrics.
func NewDispatcher(transport Transport, cfg Config) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "Seoul Glow"
	}
	counter, err := mp.Meter("github.com/seoulglow/kbeauty-store/internal/domain/notify").
		Int64Counter("notifications_total",
			metric.WithDescription("Order notifications by template and outcome"),
		)
	if err != nil {
		return nil, errors.Wrap(err, "notifications counter")
	}
	return &Dispatcher{
		transport: transport,
		cfg:       cfg,
		templates: tmpl,
		sent:      counter,
	}, nil
}

// OrderStatusChanged emails the customer when the order was shipped or
// delivered. Other statuses are skipped. Every call is counted in
// notifications_total; untemplated statuses get an empty template label.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, n Notice) Result {
	r, ok := rules[n.Status]
	if !ok {
		return d.record(ctx, Result{Outcome: OutcomeSkipped, Reason: "no notification for status " + n.Status})
	}

	lg := zctx.From(ctx).With(
		zap.String("order_id", n.OrderID),
		zap.String("template", r.template),
	)
	if n.Email == "" {
		lg.Warn("Customer has no email, notification skipped")
		return d.record(ctx, Result{Outcome: OutcomeSkipped, Template: r.template, Reason: "customer has no email"})
	}

	number := OrderNumber(n.OrderID)
	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, r.template, templateData{
		StoreName:         d.cfg.StoreName,
		OrderNumber:       number,
		CustomerName:      customerName(n.CustomerName),
		TrackingNumber:    "Available soon",
		Carrier:           "Standard Shipping",
		EstimatedDelivery: "3-5 business days",
	}); err != nil {
		lg.Error("Render notification", zap.Error(err))
		return d.record(ctx, Result{Outcome: OutcomeFailed, Template: r.template, Reason: err.Error()})
	}

	msg := Message{
		To:      n.Email,
		From:    d.cfg.From,
		Subject: fmt.Sprintf(r.subject, number),
		HTML:    body.String(),
	}
	if err := d.transport.Send(ctx, msg); err != nil {
		lg.Error("Send notification", zap.Error(err))
		return d.record(ctx, Result{Outcome: OutcomeFailed, Template: r.template, Reason: err.Error()})
	}

	lg.Info("Notification sent")
	return d.record(ctx, Result{Outcome: OutcomeSent, Template: r.template})
}

func (d *Dispatcher) record(ctx context.Context, r Result) Result {
	d.sent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", r.Template),
		attribute.String("outcome", string(r.Outcome)),
	))
	return r
}

// OrderNumber is the customer-facing short form of an order id.
func OrderNumber(orderID string) string {
	if len(orderID) > 8 {
		orderID = orderID[:8]
	}
	return strings.ToUpper(orderID)
}

func customerName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
