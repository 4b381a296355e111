package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/signalalpha/cryptomkt-go/internal/watch"
	"github.com/signalalpha/cryptomkt-go/pkg/cryptomkt"
)

func marketFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "market",
		Aliases: []string{"m"},
		Usage:   "market symbol, e.g. ETHCLP (defaults to trading.default_market)",
	}
}

func paginationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Usage: "page number, starting at 0"},
		&cli.IntFlag{Name: "limit", Usage: "results per page (defaults to cryptomkt.default_limit)"},
	}
}

func withPagination(flags ...cli.Flag) []cli.Flag {
	return append(flags, paginationFlags()...)
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "markets",
			Usage:  "list available markets",
			Action: cmdMarkets,
		},
		{
			Name:  "ticker",
			Usage: "show ticker data for one market or all of them",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "market", Aliases: []string{"m"}, Usage: "market symbol (all markets when empty)"},
			},
			Action: cmdTicker,
		},
		{
			Name:  "book",
			Usage: "show one side of the order book",
			Flags: withPagination(
				marketFlag(),
				&cli.StringFlag{Name: "side", Aliases: []string{"s"}, Value: "buy", Usage: "book side (buy, sell)"},
			),
			Action: cmdBook,
		},
		{
			Name:  "trades",
			Usage: "list market trades between two dates",
			Flags: withPagination(
				marketFlag(),
				&cli.StringFlag{Name: "start", Usage: "start date YYYY-MM-DD (defaults to today, UTC)"},
				&cli.StringFlag{Name: "end", Usage: "end date YYYY-MM-DD (defaults to start)"},
			),
			Action: cmdTrades,
		},
		{
			Name:  "orders",
			Usage: "list your orders",
			Subcommands: []*cli.Command{
				{
					Name:   "active",
					Usage:  "list open orders",
					Flags:  withPagination(marketFlag()),
					Action: cmdActiveOrders,
				},
				{
					Name:   "executed",
					Usage:  "list executed orders",
					Flags:  withPagination(marketFlag()),
					Action: cmdExecutedOrders,
				},
			},
		},
		{
			Name:  "order",
			Usage: "manage a single order",
			Subcommands: []*cli.Command{
				{
					Name:  "create",
					Usage: "place a limit order",
					Flags: []cli.Flag{
						marketFlag(),
						&cli.StringFlag{Name: "side", Aliases: []string{"s"}, Required: true, Usage: "order side (buy, sell)"},
						&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "amount to trade"},
						&cli.StringFlag{Name: "price", Aliases: []string{"p"}, Required: true, Usage: "limit price"},
					},
					Action: cmdCreateOrder,
				},
				{
					Name:      "status",
					Usage:     "show an order",
					ArgsUsage: "<order-id>",
					Action:    cmdOrderStatus,
				},
				{
					Name:      "cancel",
					Usage:     "cancel an order",
					ArgsUsage: "<order-id>",
					Action:    cmdCancelOrder,
				},
			},
		},
		{
			Name:   "balance",
			Usage:  "show wallet balances",
			Action: cmdBalance,
		},
		{
			Name:  "payment",
			Usage: "manage payment orders",
			Subcommands: []*cli.Command{
				{
					Name:  "create",
					Usage: "create a payment order",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "amount to receive"},
						&cli.StringFlag{Name: "currency", Required: true, Usage: "currency to receive, e.g. CLP"},
						&cli.StringFlag{Name: "receiver", Required: true, Usage: "email of the receiving account"},
						&cli.StringFlag{Name: "external-id", Usage: "merchant order id (random UUID when empty)"},
						&cli.StringFlag{Name: "callback-url", Usage: "URL notified on status changes"},
						&cli.StringFlag{Name: "error-url", Usage: "redirect URL on failure"},
						&cli.StringFlag{Name: "success-url", Usage: "redirect URL on success"},
						&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "watch the order until it settles"},
					},
					Action: cmdCreatePayment,
				},
				{
					Name:      "status",
					Usage:     "show a payment order",
					ArgsUsage: "<payment-id>",
					Action:    cmdPaymentStatus,
				},
				{
					Name:      "watch",
					Usage:     "poll a payment order until it settles",
					ArgsUsage: "<payment-id>",
					Action:    cmdWatchPayment,
				},
			},
		},
	}
}

func market(c *cli.Context) string {
	if m := c.String("market"); m != "" {
		return m
	}
	return getConfig(c).Trading.DefaultMarket
}

func pagination(c *cli.Context) cryptomkt.Pagination {
	return cryptomkt.Pagination{Page: c.Int("page"), Limit: c.Int("limit")}
}

func firstArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 {
		return "", errors.Errorf("%s is required", name)
	}
	return c.Args().First(), nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid %s %q", name, value)
	}
	return d, nil
}

func cmdMarkets(c *cli.Context) error {
	markets, err := getClient(c).GetMarkets()
	if err != nil {
		return errors.Wrap(err, "failed to get markets")
	}
	return getPrinter(c).print(markets)
}

func cmdTicker(c *cli.Context) error {
	tickers, err := getClient(c).GetTicker(c.String("market"))
	if err != nil {
		return errors.Wrap(err, "failed to get ticker")
	}
	return getPrinter(c).print(tickers)
}

func cmdBook(c *cli.Context) error {
	book, err := getClient(c).GetBook(market(c), cryptomkt.OrderSide(c.String("side")), pagination(c))
	if err != nil {
		return errors.Wrap(err, "failed to get order book")
	}
	return getPrinter(c).print(book)
}

func cmdTrades(c *cli.Context) error {
	trades, err := getClient(c).Market(market(c)).Trades(c.String("start"), c.String("end"), pagination(c))
	if err != nil {
		return errors.Wrap(err, "failed to get trades")
	}
	return getPrinter(c).print(trades)
}

func cmdActiveOrders(c *cli.Context) error {
	orders, err := getClient(c).Market(market(c)).ActiveOrders(pagination(c))
	if err != nil {
		return errors.Wrap(err, "failed to get active orders")
	}
	return getPrinter(c).print(orders)
}

func cmdExecutedOrders(c *cli.Context) error {
	orders, err := getClient(c).Market(market(c)).ExecutedOrders(pagination(c))
	if err != nil {
		return errors.Wrap(err, "failed to get executed orders")
	}
	return getPrinter(c).print(orders)
}

func cmdCreateOrder(c *cli.Context) error {
	amount, err := parseDecimal("amount", c.String("amount"))
	if err != nil {
		return err
	}
	price, err := parseDecimal("price", c.String("price"))
	if err != nil {
		return err
	}

	m := getClient(c).Market(market(c))

	var order *cryptomkt.Order
	switch side := cryptomkt.OrderSide(c.String("side")); side {
	case cryptomkt.OrderSideBuy:
		order, err = m.CreateBuyOrder(amount, price)
	case cryptomkt.OrderSideSell:
		order, err = m.CreateSellOrder(amount, price)
	default:
		return errors.Errorf("invalid side %q: must be buy or sell", side)
	}
	if err != nil {
		return errors.Wrap(err, "failed to create order")
	}

	getLogger(c).WithFields(map[string]interface{}{
		"order_id": order.ID,
		"market":   order.Market,
		"side":     order.Side,
	}).Info("order created")
	return getPrinter(c).print(order)
}

func cmdOrderStatus(c *cli.Context) error {
	id, err := firstArg(c, "order id")
	if err != nil {
		return err
	}
	order, err := getClient(c).GetOrderStatus(id)
	if err != nil {
		return errors.Wrap(err, "failed to get order status")
	}
	return getPrinter(c).print(order)
}

func cmdCancelOrder(c *cli.Context) error {
	id, err := firstArg(c, "order id")
	if err != nil {
		return err
	}
	order, err := getClient(c).CancelOrder(id)
	if err != nil {
		return errors.Wrap(err, "failed to cancel order")
	}
	getLogger(c).WithField("order_id", id).Info("order cancelled")
	return getPrinter(c).print(order)
}

func cmdBalance(c *cli.Context) error {
	balances, err := getClient(c).GetBalance()
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	return getPrinter(c).print(balances)
}

func cmdCreatePayment(c *cli.Context) error {
	amount, err := parseDecimal("amount", c.String("amount"))
	if err != nil {
		return err
	}

	externalID := c.String("external-id")
	if externalID == "" {
		externalID = uuid.NewString()
	}

	order := cryptomkt.NewPaymentOrder().
		SetToReceive(amount).
		SetToReceiveCurrency(c.String("currency")).
		SetPaymentReceiver(c.String("receiver")).
		SetExternalID(externalID).
		SetCallbackURL(c.String("callback-url")).
		SetErrorURL(c.String("error-url")).
		SetSuccessURL(c.String("success-url"))

	client := getClient(c)
	if _, err := client.CreatePaymentOrder(order); err != nil {
		return errors.Wrap(err, "failed to create payment order")
	}

	getLogger(c).WithFields(map[string]interface{}{
		"payment_id":  order.ID(),
		"external_id": order.ExternalID(),
	}).Info("payment order created")

	if err := getPrinter(c).printPayment(order); err != nil {
		return err
	}

	if !c.Bool("watch") {
		return nil
	}
	return watchPayment(c, client, order.ID())
}

func cmdPaymentStatus(c *cli.Context) error {
	id, err := firstArg(c, "payment id")
	if err != nil {
		return err
	}
	order, err := getClient(c).GetPaymentOrderStatus(id)
	if err != nil {
		return errors.Wrap(err, "failed to get payment order status")
	}
	return getPrinter(c).printPayment(order)
}

func cmdWatchPayment(c *cli.Context) error {
	id, err := firstArg(c, "payment id")
	if err != nil {
		return err
	}
	return watchPayment(c, getClient(c), id)
}

func watchPayment(c *cli.Context, client watch.StatusFetcher, id string) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := getPrinter(c)
	svc := watch.NewService(client, watch.NewConfig(getConfig(c).Payment), getLogger(c))
	svc.OnChange(func(order *cryptomkt.PaymentOrder) {
		_, _ = p.w.Write([]byte(statusLine(order) + "\n"))
	})

	order, err := svc.Watch(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return errors.Wrap(err, "failed to watch payment order")
	}
	return p.printPayment(order)
}
