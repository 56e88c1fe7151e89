package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foodstand/internal/config"
	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/orders"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		arg     string
		want    lineArg
		wantErr string
	}{
		{arg: "1", want: lineArg{ItemID: 1, Quantity: 1}},
		{arg: "2x3", want: lineArg{ItemID: 2, Quantity: 3}},
		{arg: "1+drink", want: lineArg{ItemID: 1, Quantity: 1, AddDrink: true}},
		{arg: "1x2+drink", want: lineArg{ItemID: 1, Quantity: 2, AddDrink: true}},
		{arg: "abc", wantErr: "bad item id"},
		{arg: "1x0", wantErr: "quantity must be a positive number"},
		{arg: "1x", wantErr: "quantity must be a positive number"},
		{arg: "1x-2", wantErr: "quantity must be a positive number"},
		{arg: "1x2147483647", want: lineArg{ItemID: 1, Quantity: 2147483647}},
		{arg: "1x2147483648", wantErr: "up to 2147483647"},
		{arg: "1x100000000000000000", wantErr: "up to 2147483647"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseLine(tt.arg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, ExitCommandError, GetExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitAndListOrders(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "--format", "json", "submit", "1x2+drink", "4")
	require.NoError(t, err)
	var submitted OrderResult
	decodeData(t, out, &submitted)
	assert.Equal(t, 1, submitted.Order.OrderNumber)
	assert.Equal(t, 265, submitted.Order.Total)
	require.Len(t, submitted.Order.Items, 2)
	assert.True(t, submitted.Order.Items[0].AddDrink)
	assert.False(t, submitted.Order.Items[1].AddDrink)

	_, err = runCLI(t, cfg, "submit", "3")
	require.NoError(t, err)

	out, err = runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var list OrderList
	decodeData(t, out, &list)
	require.Len(t, list.Orders, 2)
	assert.Equal(t, 2, list.Orders[0].OrderNumber, "newest first")
	assert.Equal(t, 1, list.Orders[1].OrderNumber)
}

func TestSubmit_Errors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := runCLI(t, cfg, "submit", "1x0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := runCLI(t, cfg, "submit", "42")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")

	out, err = runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var list OrderList
	decodeData(t, out, &list)
	assert.Empty(t, list.Orders)
}

func TestCompleteAndClear(t *testing.T) {
	cfg := writeConfig(t)

	_, err := runCLI(t, cfg, "submit", "2")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "submit", "3")
	require.NoError(t, err)

	_, err = runCLI(t, cfg, "complete", "9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, cfg, "complete", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := runCLI(t, cfg, "--format", "json", "complete", "1")
	require.NoError(t, err)
	var completed OrderResult
	decodeData(t, out, &completed)
	assert.True(t, completed.Order.Completed)

	out, err = runCLI(t, cfg, "--format", "json", "orders", "--status", "pending")
	require.NoError(t, err)
	var pending OrderList
	decodeData(t, out, &pending)
	require.Len(t, pending.Orders, 1)
	assert.Equal(t, 2, pending.Orders[0].OrderNumber)

	_, err = runCLI(t, cfg, "orders", "--status", "done")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, cfg, "clear-completed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = runCLI(t, cfg, "--format", "json", "clear-completed", "--yes")
	require.NoError(t, err)
	var removed RemovedResult
	decodeData(t, out, &removed)
	assert.Equal(t, 1, removed.Removed)

	out, err = runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var all OrderList
	decodeData(t, out, &all)
	require.Len(t, all.Orders, 1)
	assert.Equal(t, 2, all.Orders[0].OrderNumber)
}

func TestResetCounterRepeatsNumbers(t *testing.T) {
	cfg := writeConfig(t)

	_, err := runCLI(t, cfg, "submit", "1")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "reset-counter", "-y")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "submit", "2")
	require.NoError(t, err)

	out, err := runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var list OrderList
	decodeData(t, out, &list)
	require.Len(t, list.Orders, 2)
	assert.Equal(t, 1, list.Orders[0].OrderNumber)
	assert.Equal(t, 1, list.Orders[1].OrderNumber)

	out, err = runCLI(t, cfg, "--format", "json", "reset-orders", "--yes")
	require.NoError(t, err)
	var removed RemovedResult
	decodeData(t, out, &removed)
	assert.Equal(t, 2, removed.Removed)
}

func TestCartAddDoesNotPersist(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "--format", "json", "cart", "add", "1x2+drink", "4+drink")
	require.NoError(t, err)
	var preview CartPreview
	decodeData(t, out, &preview)
	require.Len(t, preview.Lines, 2)
	assert.Equal(t, 265, preview.Total)
	assert.False(t, preview.Lines[1].AddDrink, "item 4 does not take the drink add-on")

	out, err = runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var list OrderList
	decodeData(t, out, &list)
	assert.Empty(t, list.Orders)
}

func TestMenuCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "menu", "add", "--emoji", "🍜", "--name-local", "牛肉麵")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")

	out, err = runCLI(t, cfg, "--format", "json", "menu", "add",
		"--emoji", "🍜", "--name-local", "牛肉麵", "--name-alt", "Beef Noodles",
		"--price", "120", "--max", "40", "--drink=false")
	require.NoError(t, err)
	var added MenuItemResult
	decodeData(t, out, &added)
	assert.Equal(t, 5, added.Item.ID)
	assert.Equal(t, 40, added.Cap)
	assert.False(t, added.Item.CanAddDrink)

	out, err = runCLI(t, cfg, "--format", "json", "menu", "edit", "5", "--price", "130abc")
	require.NoError(t, err)
	var edited MenuItemResult
	decodeData(t, out, &edited)
	assert.Equal(t, 130, edited.Item.Price)
	assert.Equal(t, "Beef Noodles", edited.Item.NameAlt)
	assert.Equal(t, 40, edited.Cap)

	_, err = runCLI(t, cfg, "menu", "edit", "99", "--price", "10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, cfg, "menu", "delete", "2")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "menu", "delete", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = runCLI(t, cfg, "--format", "json", "menu", "list")
	require.NoError(t, err)
	var menu MenuResult
	decodeData(t, out, &menu)
	ids := make([]int, len(menu.Items))
	for i, item := range menu.Items {
		ids[i] = item.ID
	}
	assert.Equal(t, []int{1, 3, 4, 5}, ids)
	assert.Equal(t, map[int]int{1: 50, 3: 30, 4: 100, 5: 40}, menu.Caps)
}

func TestExtrasCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "--format", "json", "extras", "add", "--name-local", "加蛋", "--name-alt", "Add Egg", "--price", "10")
	require.NoError(t, err)
	var added ExtraResult
	decodeData(t, out, &added)
	assert.Equal(t, 2, added.Option.ID)

	_, err = runCLI(t, cfg, "extras", "edit", "2", "--price", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, cfg, "extras", "delete", "1")
	require.NoError(t, err)

	out, err = runCLI(t, cfg, "--format", "json", "extras")
	require.NoError(t, err)
	var list ExtraList
	decodeData(t, out, &list)
	require.Len(t, list.Options, 1)
	assert.Equal(t, "Add Egg", list.Options[0].NameAlt)
}

func TestCapIdentityTheme(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "--format", "json", "cap", "1", "80")
	require.NoError(t, err)
	var capped CapResult
	decodeData(t, out, &capped)
	assert.Equal(t, 80, capped.Max)

	_, err = runCLI(t, cfg, "cap", "99", "10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = runCLI(t, cfg, "--format", "json", "identity", "--english", "Night Market")
	require.NoError(t, err)
	var identity IdentityResult
	decodeData(t, out, &identity)
	assert.Equal(t, "Night Market", identity.SiteName.NameAlt)
	assert.Equal(t, "美食站", identity.SiteName.NameLocal)

	_, err = runCLI(t, cfg, "theme", "rainbow")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = runCLI(t, cfg, "--format", "json", "theme", "green")
	require.NoError(t, err)
	var changed ThemeResult
	decodeData(t, out, &changed)
	assert.True(t, changed.Changed)
	assert.Equal(t, "green", changed.Theme.Key)

	out, err = runCLI(t, cfg, "--format", "json", "theme")
	require.NoError(t, err)
	var themes ThemeList
	decodeData(t, out, &themes)
	assert.Equal(t, "green", themes.Current)
	assert.Len(t, themes.Themes, len(ledger.Palette()))
}

func TestStats(t *testing.T) {
	cfg := writeConfig(t)

	_, err := runCLI(t, cfg, "cap", "3", "10")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "submit", "3x9")
	require.NoError(t, err)

	out, err := runCLI(t, cfg, "--format", "json", "stats")
	require.NoError(t, err)
	var stats StatsResult
	decodeData(t, out, &stats)
	require.Len(t, stats.Items, 4)
	assert.Equal(t, 9, stats.Items[2].Sold)
	assert.Equal(t, orders.LevelDanger, stats.Items[2].Level)
	assert.Equal(t, orders.LevelOK, stats.Items[0].Level)

	out, err = runCLI(t, cfg, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "9/10 (90%)")
}

func TestExportAndValidate(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()

	_, err := runCLI(t, cfg, "submit", "1+drink")
	require.NoError(t, err)

	exportPath := filepath.Join(dir, "export.json")
	_, err = runCLI(t, cfg, "export", "--output", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	snap, err := ledger.Decode(data)
	require.NoError(t, err)
	require.Len(t, snap.Document.Orders, 1)
	assert.Equal(t, 115, snap.Document.Orders[0].Total)

	out, err := runCLI(t, cfg, "--format", "json", "validate", exportPath)
	require.NoError(t, err)
	var valid ValidationResult
	decodeData(t, out, &valid)
	assert.True(t, valid.Valid)
	assert.Equal(t, 1, valid.Orders)

	stdout, err := runCLI(t, cfg, "export")
	require.NoError(t, err)
	assert.Equal(t, string(data), stdout)
}

func TestValidate_Failures(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()

	_, err := runCLI(t, cfg, "validate", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"orders": "not a list"}`), 0o644))
	out, err := runCLI(t, cfg, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "is not a valid document")

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`null`), 0o644))
	out, err = runCLI(t, cfg, "--format", "json", "validate", empty)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeValidation, resp.Error.Code)
}

func TestScenarioCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "--format", "json", "scenario", "../../testdata/scenarios/concurrent_submit.yaml", "--trace")
	require.NoError(t, err)
	var report ScenarioReport
	decodeData(t, out, &report)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Results, 1)
	assert.NotEmpty(t, report.Results[0].Trace)

	_, err = runCLI(t, cfg, "scenario", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand_Failure(t *testing.T) {
	cfg := writeConfig(t)
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: wrong
description: expects the wrong order number
clients: [pos]
steps:
  - client: pos
    action: add_to_cart
    args: { item: 2 }
  - client: pos
    action: submit
    expect: { orderNumber: 3 }
`), 0o644))

	out, err := runCLI(t, cfg, "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "expected orderNumber=3, got 1")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestHashPassphrase(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "hash-passphrase", "open sesame")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.True(t, config.MatchPassphrase(hash, "open sesame"))
	assert.False(t, config.MatchPassphrase(hash, "1234"))
}

func TestHashPassphrase_Stdin(t *testing.T) {
	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("kitchen\n"))
	cmd.SetArgs([]string{"--format", "json", "hash-passphrase"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data struct {
			Hash string `json:"hash"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out.String()), &resp))
	assert.True(t, config.MatchPassphrase(resp.Data.Hash, "kitchen"))
}

func TestLocalOnlyCommandsDoNotPersist(t *testing.T) {
	t.Setenv("FOODSTAND_API_KEY", "")
	t.Setenv("FOODSTAND_DATABASE_URL", "")
	cfg := filepath.Join(t.TempDir(), "none.toml")

	out, err := runCLI(t, cfg, "--format", "json", "submit", "2")
	require.NoError(t, err)
	var submitted OrderResult
	decodeData(t, out, &submitted)
	assert.Equal(t, 1, submitted.Order.OrderNumber)

	out, err = runCLI(t, cfg, "--format", "json", "orders")
	require.NoError(t, err)
	var list OrderList
	decodeData(t, out, &list)
	assert.Empty(t, list.Orders)
}
