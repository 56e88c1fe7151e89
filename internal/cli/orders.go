package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/orders"
)

// OrderList is the result of the orders command.
type OrderList struct {
	Status string         `json:"status"`
	Orders []ledger.Order `json:"orders"`
}

func (l OrderList) renderText(st Styles) string {
	if len(l.Orders) == 0 {
		return st.Muted.Render("no orders")
	}
	var b strings.Builder
	for i, o := range l.Orders {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderOrder(st, o))
	}
	return b.String()
}

func renderOrder(st Styles, o ledger.Order) string {
	var b strings.Builder
	state := st.Warning.Render("pending")
	if o.Completed {
		state = st.Success.Render("completed")
	}
	fmt.Fprintf(&b, "%s  %s  %s  %s\n",
		st.Title.Render(fmt.Sprintf("#%d", o.OrderNumber)),
		state,
		st.Accent.Render(fmt.Sprintf("$%d", o.Total)),
		st.Muted.Render(o.CreatedAt.String()))
	for _, line := range o.Items {
		b.WriteString("  " + renderLine(line) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderLine(line ledger.CartLine) string {
	drink := ""
	if line.AddDrink {
		drink = " +drink"
	}
	return fmt.Sprintf("%s %s x%d%s  $%d", line.Emoji, line.NameAlt, line.Quantity, drink, line.TotalPrice)
}

// OrderResult reports a single order touched by a command.
type OrderResult struct {
	Order  ledger.Order `json:"order"`
	Action string       `json:"action"`
}

func (r OrderResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ order #%d %s", r.Order.OrderNumber, r.Action)) + "\n" + renderOrder(st, r.Order)
}

// RemovedResult reports a destructive command.
type RemovedResult struct {
	Action  string `json:"action"`
	Removed int    `json:"removed"`
}

func (r RemovedResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ %s (%d removed)", r.Action, r.Removed))
}

// CounterResult reports a counter reset.
type CounterResult struct {
	NextOrder int `json:"nextOrder"`
}

func (r CounterResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ order counter reset; next order is #%d", r.NextOrder))
}

// StatsResult is the result of the stats command.
type StatsResult struct {
	Items []orders.ItemStat `json:"items"`
}

func (r StatsResult) renderText(st Styles) string {
	var b strings.Builder
	b.WriteString(st.Header.Render("sales") + "\n")
	for _, item := range r.Items {
		level := st.Success
		switch item.Level {
		case orders.LevelWarning:
			level = st.Warning
		case orders.LevelDanger:
			level = st.Error
		}
		fmt.Fprintf(&b, "%s %-36s %s\n",
			item.Emoji,
			item.NameAlt,
			level.Render(fmt.Sprintf("%d/%d (%.0f%%)", item.Sold, item.Cap, item.Percent)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders, newest first",
		Long: `List the orders in the shared document, newest first.

Example:
  foodstand orders
  foodstand orders --status pending --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch status {
			case "all", "pending", "completed":
			default:
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid status %q: must be all, pending or completed", status))
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				list := OrderList{Status: status}
				switch status {
				case "pending":
					list.Orders = v.Pending
				case "completed":
					list.Orders = v.Completed
				default:
					list.Orders = v.Document.Orders
				}
				if list.Orders == nil {
					list.Orders = []ledger.Order{}
				}
				return s.out.Success(list)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter by status (all|pending|completed)")
	return cmd
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <line>...",
		Short: "Submit an order",
		Long: `Fill a cart with the given lines and submit it as one order.

Each line is <item-id>[x<quantity>][+drink]. The drink surcharge only
applies to items that allow it.

Example:
  foodstand submit 1x2+drink 4
  foodstand submit 2 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseLines(args)
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				for _, l := range lines {
					if _, _, err := s.engine.AddToCart(ctx, l.ItemID, l.Quantity, l.AddDrink); err != nil {
						return s.fail(err)
					}
				}
				o, ok, err := s.engine.Submit(ctx)
				if err != nil {
					return s.fail(err)
				}
				if !ok {
					_ = s.out.Error(CodeValidation, "cart is empty", nil)
					return NewExitError(ExitCommandError, "cart is empty")
				}
				return s.out.Success(OrderResult{Order: o, Action: "submitted"})
			})
		},
	}
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <order-number>",
		Short: "Mark an order completed",
		Long: `Mark a pending order completed from the kitchen.

Example:
  foodstand complete 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid order number %q", args[0]))
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				ok, err := s.engine.MarkCompletedRemote(ctx, n)
				if err != nil {
					return s.fail(err)
				}
				if !ok {
					return s.notFound(fmt.Sprintf("order #%d", n))
				}
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				for _, o := range v.Document.Orders {
					if o.OrderNumber == n && o.Completed {
						return s.out.Success(OrderResult{Order: o, Action: "completed"})
					}
				}
				return s.out.Success(OrderResult{Order: ledger.Order{OrderNumber: n, Completed: true}, Action: "completed"})
			})
		},
	}
}

// NewClearCompletedCommand creates the clear-completed command.
func NewClearCompletedCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				n, err := s.engine.ClearCompleted(ctx, yes)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(RemovedResult{Action: "completed orders cleared", Removed: n})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm removal")
	return cmd
}

// NewResetOrdersCommand creates the reset-orders command.
func NewResetOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-orders",
		Short: "Remove every order",
		Long: `Remove every order, pending and completed. The order counter is
left as is; use reset-counter to restart numbering.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				n, err := s.engine.ResetAll(ctx, yes)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(RemovedResult{Action: "all orders reset", Removed: n})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm removal")
	return cmd
}

// NewResetCounterCommand creates the reset-counter command.
func NewResetCounterCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-counter",
		Short: "Restart order numbering at 1",
		Long: `Reset the order counter so the next order is #1. Existing orders are
kept, so numbers may repeat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.engine.ResetCounter(ctx, yes); err != nil {
					return s.fail(err)
				}
				return s.out.Success(CounterResult{NextOrder: 1})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm reset")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show units sold per menu item against its cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				stats, err := s.engine.Statistics(ctx)
				if err != nil {
					return s.fail(err)
				}
				if stats == nil {
					stats = []orders.ItemStat{}
				}
				return s.out.Success(StatsResult{Items: stats})
			})
		},
	}
}
