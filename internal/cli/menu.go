package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
)

// MenuResult is the current menu with caps and extra options.
type MenuResult struct {
	Items  []ledger.MenuItem    `json:"menuItems"`
	Caps   map[int]int          `json:"maxInventory"`
	Extras []ledger.ExtraOption `json:"extraOptions"`
}

func (m MenuResult) renderText(st Styles) string {
	var b strings.Builder
	b.WriteString(st.Header.Render("menu") + "\n")
	for _, item := range m.Items {
		drink := ""
		if item.CanAddDrink {
			drink = st.Muted.Render(" +drink ok")
		}
		fmt.Fprintf(&b, "%s %s %s %s  %s  %s%s\n",
			st.Title.Render(fmt.Sprintf("%2d", item.ID)),
			item.Emoji,
			item.NameLocal,
			item.NameAlt,
			st.Accent.Render(fmt.Sprintf("$%d", item.Price)),
			st.Muted.Render(fmt.Sprintf("max %d", m.Caps[item.ID])),
			drink)
	}
	if len(m.Extras) > 0 {
		b.WriteString(st.Header.Render("extras") + "\n")
		b.WriteString(renderExtras(st, m.Extras))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderExtras(st Styles, extras []ledger.ExtraOption) string {
	var b strings.Builder
	for _, opt := range extras {
		fmt.Fprintf(&b, "%s %s %s  %s\n",
			st.Title.Render(fmt.Sprintf("%2d", opt.ID)),
			opt.NameLocal,
			opt.NameAlt,
			st.Accent.Render(fmt.Sprintf("$%d", opt.Price)))
	}
	return b.String()
}

// MenuItemResult reports one added or edited menu item.
type MenuItemResult struct {
	Item   ledger.MenuItem `json:"item"`
	Cap    int             `json:"max"`
	Action string          `json:"action"`
}

func (r MenuItemResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ menu item %d %s: %s %s $%d (max %d)",
		r.Item.ID, r.Action, r.Item.Emoji, r.Item.NameAlt, r.Item.Price, r.Cap))
}

// ExtraResult reports one added or edited extra option.
type ExtraResult struct {
	Option ledger.ExtraOption `json:"option"`
	Action string             `json:"action"`
}

func (r ExtraResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ extra option %d %s: %s $%d",
		r.Option.ID, r.Action, r.Option.NameAlt, r.Option.Price))
}

// DeletedResult reports a removed menu item or extra option.
type DeletedResult struct {
	Kind string `json:"kind"`
	ID   int    `json:"id"`
}

func (r DeletedResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ %s %d deleted", r.Kind, r.ID))
}

// menuItemFlags are the admin form fields. Price and max take the same
// lenient numbers as the form: leading digits count, anything else is 0.
type menuItemFlags struct {
	emoji     string
	nameLocal string
	nameAlt   string
	price     string
	max       string
	drink     bool
}

func (f *menuItemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.emoji, "emoji", "", "item emoji")
	cmd.Flags().StringVar(&f.nameLocal, "name-local", "", "local name")
	cmd.Flags().StringVar(&f.nameAlt, "name-alt", "", "alternate name")
	cmd.Flags().StringVar(&f.price, "price", "", "price")
	cmd.Flags().StringVar(&f.max, "max", "", "inventory cap (default 50)")
	cmd.Flags().BoolVar(&f.drink, "drink", true, "allow the drink add-on")
}

// input builds the form from the flags, starting from base for flags that
// were not given.
func (f *menuItemFlags) input(cmd *cobra.Command, base mirror.MenuItemInput) mirror.MenuItemInput {
	in := base
	if cmd.Flags().Changed("emoji") {
		in.Emoji = f.emoji
	}
	if cmd.Flags().Changed("name-local") {
		in.NameLocal = f.nameLocal
	}
	if cmd.Flags().Changed("name-alt") {
		in.NameAlt = f.nameAlt
	}
	if cmd.Flags().Changed("price") {
		in.Price = mirror.ParseNumber(f.price)
	}
	if cmd.Flags().Changed("max") {
		in.MaxInventory = mirror.ParseNumber(f.max)
	}
	if cmd.Flags().Changed("drink") {
		drink := f.drink
		in.CanAddDrink = &drink
	}
	return in
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

func menuResult(ctx context.Context, s *session) (MenuResult, error) {
	v, err := s.engine.View(ctx)
	if err != nil {
		return MenuResult{}, err
	}
	doc := v.Document
	r := MenuResult{Items: doc.MenuItems, Caps: doc.MaxInventory, Extras: doc.ExtraOptions}
	if r.Items == nil {
		r.Items = []ledger.MenuItem{}
	}
	if r.Caps == nil {
		r.Caps = map[int]int{}
	}
	if r.Extras == nil {
		r.Extras = []ledger.ExtraOption{}
	}
	return r, nil
}

// NewMenuCommand creates the menu command and its subcommands. Without a
// subcommand it lists the menu.
func NewMenuCommand(rootOpts *RootOptions) *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
			r, err := menuResult(ctx, s)
			if err != nil {
				return s.fail(err)
			}
			return s.out.Success(r)
		})
	}

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show or edit the menu",
		Args:  cobra.NoArgs,
		RunE:  list,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List menu items, caps and extra options",
		Args:  cobra.NoArgs,
		RunE:  list,
	})
	cmd.AddCommand(newMenuAddCommand(rootOpts))
	cmd.AddCommand(newMenuEditCommand(rootOpts))
	cmd.AddCommand(newMenuDeleteCommand(rootOpts))
	return cmd
}

func newMenuAddCommand(rootOpts *RootOptions) *cobra.Command {
	f := &menuItemFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a menu item",
		Long: `Add a menu item. Emoji, both names and a positive price are required.

Example:
  foodstand menu add --emoji 🍜 --name-local 牛肉麵 --name-alt "Beef Noodles" --price 120 --max 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := f.input(cmd, mirror.MenuItemInput{})
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				item, err := s.engine.AddMenuItem(ctx, in)
				if err != nil {
					return s.fail(err)
				}
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(MenuItemResult{Item: item, Cap: v.Document.MaxInventory[item.ID], Action: "added"})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMenuEditCommand(rootOpts *RootOptions) *cobra.Command {
	f := &menuItemFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a menu item",
		Long: `Edit a menu item. Fields whose flags are not given keep their value.

Example:
  foodstand menu edit 2 --price 80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				var base mirror.MenuItemInput
				found := false
				for _, item := range v.Document.MenuItems {
					if item.ID == id {
						base = mirror.MenuItemInput{
							Emoji:        item.Emoji,
							NameLocal:    item.NameLocal,
							NameAlt:      item.NameAlt,
							Price:        mirror.Number(item.Price),
							MaxInventory: mirror.Number(v.Document.MaxInventory[id]),
						}
						found = true
						break
					}
				}
				if !found {
					return s.notFound(fmt.Sprintf("menu item %d", id))
				}

				item, err := s.engine.EditMenuItem(ctx, id, f.input(cmd, base))
				if err != nil {
					return s.fail(err)
				}
				after, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(MenuItemResult{Item: item, Cap: after.Document.MaxInventory[id], Action: "updated"})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMenuDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a menu item",
		Long: `Delete a menu item and its cap. Orders that contain it are kept.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				ok, err := s.engine.DeleteMenuItem(ctx, id)
				if err != nil {
					return s.fail(err)
				}
				if !ok {
					return s.notFound(fmt.Sprintf("menu item %d", id))
				}
				return s.out.Success(DeletedResult{Kind: "menu item", ID: id})
			})
		},
	}
}

// extraFlags are the extra option form fields.
type extraFlags struct {
	nameLocal string
	nameAlt   string
	price     string
}

func (f *extraFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.nameLocal, "name-local", "", "local name")
	cmd.Flags().StringVar(&f.nameAlt, "name-alt", "", "alternate name")
	cmd.Flags().StringVar(&f.price, "price", "", "price")
}

func (f *extraFlags) input(cmd *cobra.Command, base mirror.ExtraOptionInput) mirror.ExtraOptionInput {
	in := base
	if cmd.Flags().Changed("name-local") {
		in.NameLocal = f.nameLocal
	}
	if cmd.Flags().Changed("name-alt") {
		in.NameAlt = f.nameAlt
	}
	if cmd.Flags().Changed("price") {
		in.Price = mirror.ParseNumber(f.price)
	}
	return in
}

// NewExtrasCommand creates the extras command and its subcommands.
func NewExtrasCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extras",
		Short: "Show or edit the extra options",
		Long: `Extra options are stored and edited but not offered in the cart; the
drink add-on uses its own fixed surcharge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				r, err := menuResult(ctx, s)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(ExtraList{Options: r.Extras})
			})
		},
	}

	add := &extraFlags{}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an extra option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := add.input(cmd, mirror.ExtraOptionInput{})
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				opt, err := s.engine.AddExtraOption(ctx, in)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(ExtraResult{Option: opt, Action: "added"})
			})
		},
	}
	add.register(addCmd)

	edit := &extraFlags{}
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an extra option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "extra option")
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				r, err := menuResult(ctx, s)
				if err != nil {
					return s.fail(err)
				}
				var base mirror.ExtraOptionInput
				found := false
				for _, opt := range r.Extras {
					if opt.ID == id {
						base = mirror.ExtraOptionInput{NameLocal: opt.NameLocal, NameAlt: opt.NameAlt, Price: mirror.Number(opt.Price)}
						found = true
						break
					}
				}
				if !found {
					return s.notFound(fmt.Sprintf("extra option %d", id))
				}
				opt, err := s.engine.EditExtraOption(ctx, id, edit.input(cmd, base))
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(ExtraResult{Option: opt, Action: "updated"})
			})
		},
	}
	edit.register(editCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an extra option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "extra option")
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				ok, err := s.engine.DeleteExtraOption(ctx, id)
				if err != nil {
					return s.fail(err)
				}
				if !ok {
					return s.notFound(fmt.Sprintf("extra option %d", id))
				}
				return s.out.Success(DeletedResult{Kind: "extra option", ID: id})
			})
		},
	}

	cmd.AddCommand(addCmd, editCmd, deleteCmd)
	return cmd
}

// ExtraList is the result of the extras command.
type ExtraList struct {
	Options []ledger.ExtraOption `json:"extraOptions"`
}

func (l ExtraList) renderText(st Styles) string {
	if len(l.Options) == 0 {
		return st.Muted.Render("no extra options")
	}
	return strings.TrimSuffix(renderExtras(st, l.Options), "\n")
}

// CapResult reports an inventory cap change.
type CapResult struct {
	ItemID int `json:"id"`
	Max    int `json:"max"`
}

func (r CapResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ menu item %d capped at %d", r.ItemID, r.Max))
}

// NewCapCommand creates the cap command.
func NewCapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cap <id> <max>",
		Short: "Set a menu item's inventory cap",
		Long: `Set the inventory cap of one menu item. Caps only drive the sales
warnings; they never block an order. Negative values are stored as 0.

Example:
  foodstand cap 1 80`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			limit := mirror.ParseNumber(args[1])
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				n, err := s.engine.SetCap(ctx, id, limit)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(CapResult{ItemID: id, Max: n})
			})
		},
	}
}

// IdentityResult reports the site identity.
type IdentityResult struct {
	SiteName ledger.SiteIdentity `json:"siteName"`
}

func (r IdentityResult) renderText(st Styles) string {
	return st.Title.Render(fmt.Sprintf("%s %s %s", r.SiteName.Emoji, r.SiteName.NameLocal, r.SiteName.NameAlt))
}

// NewIdentityCommand creates the identity command.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	var in mirror.IdentityInput
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show or change the stand's name",
		Long: `Without flags, show the stand's name. Flags that are not given keep
their value.

Example:
  foodstand identity --emoji 🍢 --english "Night Market"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if in == (mirror.IdentityInput{}) {
					v, err := s.engine.View(ctx)
					if err != nil {
						return s.fail(err)
					}
					return s.out.Success(IdentityResult{SiteName: v.Document.SiteName})
				}
				id, err := s.engine.SetIdentity(ctx, in)
				if err != nil {
					return s.fail(err)
				}
				return s.out.Success(IdentityResult{SiteName: id})
			})
		},
	}
	cmd.Flags().StringVar(&in.Emoji, "emoji", "", "site emoji")
	cmd.Flags().StringVar(&in.NameLocal, "chinese", "", "local site name")
	cmd.Flags().StringVar(&in.NameAlt, "english", "", "alternate site name")
	return cmd
}

// ThemeList is the palette with the current selection.
type ThemeList struct {
	Current string         `json:"current"`
	Themes  []ledger.Theme `json:"themes"`
}

func (l ThemeList) renderText(st Styles) string {
	var b strings.Builder
	for _, t := range l.Themes {
		marker := "  "
		if t.Key == l.Current {
			marker = "▸ "
		}
		swatch := NewStyles(t).Title.Render("■■■")
		fmt.Fprintf(&b, "%s%-7s %s %s\n", marker, t.Key, swatch, t.Name)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ThemeResult reports a theme change.
type ThemeResult struct {
	Theme   ledger.Theme `json:"theme"`
	Changed bool         `json:"changed"`
}

func (r ThemeResult) renderText(st Styles) string {
	if !r.Changed {
		return st.Muted.Render(fmt.Sprintf("theme is already %s", r.Theme.Key))
	}
	return NewStyles(r.Theme).Success.Render(fmt.Sprintf("✓ theme set to %s", r.Theme.Name))
}

// NewThemeCommand creates the theme command.
func NewThemeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "theme [key]",
		Short: "List the palette or switch theme",
		Long: `Without an argument, list the palette. With a key, switch every
client to that theme.

Example:
  foodstand theme
  foodstand theme green`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if _, ok := ledger.LookupTheme(args[0]); !ok {
					return NewExitError(ExitCommandError, fmt.Sprintf("unknown theme %q", args[0]))
				}
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				if len(args) == 0 {
					return s.out.Success(ThemeList{Current: v.Theme.Key, Themes: ledger.Palette()})
				}
				changed, err := s.engine.SetTheme(ctx, args[0])
				if err != nil {
					return s.fail(err)
				}
				t, _ := ledger.LookupTheme(args[0])
				return s.out.Success(ThemeResult{Theme: t, Changed: changed && v.Theme.Key != t.Key})
			})
		},
	}
}
