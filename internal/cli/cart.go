package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
)

const drinkSuffix = "+drink"

// lineArg is one parsed <item-id>[x<quantity>][+drink] argument.
type lineArg struct {
	ItemID   int
	Quantity mirror.Number
	AddDrink bool
}

// parseLines parses cart line arguments. Quantities must be positive.
func parseLines(args []string) ([]lineArg, error) {
	lines := make([]lineArg, 0, len(args))
	for _, arg := range args {
		l, err := parseLine(arg)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func parseLine(arg string) (lineArg, error) {
	s := strings.TrimSpace(arg)
	l := lineArg{Quantity: 1}
	if rest, ok := strings.CutSuffix(s, drinkSuffix); ok {
		s, l.AddDrink = rest, true
	}

	idPart, qtyPart, hasQty := strings.Cut(s, "x")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return l, NewExitError(ExitCommandError, fmt.Sprintf("invalid line %q: bad item id", arg))
	}
	l.ItemID = id

	if hasQty {
		qty, err := strconv.ParseInt(qtyPart, 10, 32)
		if err != nil || qty <= 0 {
			return l, NewExitError(ExitCommandError, fmt.Sprintf("invalid line %q: quantity must be a positive number up to %d", arg, math.MaxInt32))
		}
		l.Quantity = mirror.Number(qty)
	}
	return l, nil
}

// CartPreview prices cart lines against the current menu.
type CartPreview struct {
	Lines []ledger.CartLine `json:"lines"`
	Total int               `json:"total"`
}

func (p CartPreview) renderText(st Styles) string {
	var b strings.Builder
	for _, line := range p.Lines {
		b.WriteString(renderLine(line) + "\n")
	}
	b.WriteString(st.Accent.Render(fmt.Sprintf("total $%d", p.Total)))
	return b.String()
}

// NewCartCommand creates the cart command.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Price cart lines without submitting",
		Long: `The cart lives in one client and is never saved, so from the command
line it can only be previewed. Use submit to place an order.`,
	}
	cmd.AddCommand(newCartAddCommand(rootOpts))
	return cmd
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <line>...",
		Short: "Show the lines and total a cart would hold",
		Long: `Price each <item-id>[x<quantity>][+drink] line against the current menu.

Example:
  foodstand cart add 1x2+drink 3`,
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
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				if err := s.engine.ClearCart(ctx); err != nil {
					return s.fail(err)
				}
				return s.out.Success(CartPreview{Lines: v.Cart, Total: v.CartTotal})
			})
		},
	}
}
