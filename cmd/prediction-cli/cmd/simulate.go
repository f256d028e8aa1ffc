package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chokosabe/settlementvm/asset"
	"github.com/chokosabe/settlementvm/escrow"
	"github.com/chokosabe/settlementvm/genesis"
	"github.com/chokosabe/settlementvm/market"
	"github.com/chokosabe/settlementvm/storage"
)

var ErrUnknownStep = errors.New("unknown step")

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
	failColor = color.New(color.FgRed, color.Bold)
)

// Script is a local market scenario. Accounts map labels to opening
// collateral balances; steps run in order against a fresh in-memory database.
type Script struct {
	Start    int64             `mapstructure:"start"`
	Accounts map[string]string `mapstructure:"accounts"`
	Steps    []Step            `mapstructure:"steps"`
}

// Step is one scripted operation. Expect names the error code the step must
// fail with; empty means it must succeed.
type Step struct {
	Op          string `mapstructure:"op"`
	Market      string `mapstructure:"market"`
	Account     string `mapstructure:"account"`
	Description string `mapstructure:"description"`
	ResolvesIn  int64  `mapstructure:"resolves_in"`
	Amount      string `mapstructure:"amount"`
	Outcome     string `mapstructure:"outcome"`
	Side        string `mapstructure:"side"`
	Seconds     int64  `mapstructure:"seconds"`
	Expect      string `mapstructure:"expect"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <script>",
	Short: "Run a market scenario against a local runtime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := LoadScript(args[0])
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		cfg := market.Config{MaxDescriptionLength: config.GetInt("max_description_length")}
		return newSimulator(script, cmd.OutOrStdout(), log, cfg).run(cmd.Context())
	},
}

// LoadScript reads a YAML or JSON script, picking the format from the file
// extension.
func LoadScript(path string) (*Script, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	script := &Script{}
	if err := v.Unmarshal(script); err != nil {
		return nil, fmt.Errorf("failed to decode script %s: %w", path, err)
	}
	return script, nil
}

type simulator struct {
	script *Script
	out    io.Writer
	log    logging.Logger
	clock  *mockable.Clock
	rt     *market.Runtime

	markets map[string]ids.ID
}

func newSimulator(script *Script, out io.Writer, log logging.Logger, cfg market.Config) *simulator {
	clock := &mockable.Clock{}
	clock.Set(time.Unix(script.Start, 0))
	ctrl := market.New(asset.NewLedger(), escrow.NewVault(), log, cfg)
	return &simulator{
		script:  script,
		out:     out,
		log:     log,
		clock:   clock,
		rt:      market.NewRuntime(memdb.New(), ctrl, clock, log),
		markets: make(map[string]ids.ID),
	}
}

func labelID(kind string, label string) ids.ID {
	return ids.ID(hashing.ComputeHash256Array([]byte(kind + ":" + strings.ToLower(label))))
}

func accountAddress(label string) codec.Address {
	return codec.CreateAddress(0, labelID("account", label))
}

func (s *simulator) run(ctx context.Context) error {
	labels := make([]string, 0, len(s.script.Accounts))
	for label := range s.script.Accounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		amount, err := ParseAmount(s.script.Accounts[label])
		if err != nil {
			return fmt.Errorf("account %s: %w", label, err)
		}
		if amount > 0 {
			if err := s.rt.Fund(ctx, accountAddress(label), amount); err != nil {
				return fmt.Errorf("failed to fund %s: %w", label, err)
			}
		}
		addr, _ := genesis.FormatAddress(accountAddress(label))
		infoColor.Fprintf(s.out, "account %-10s %s balance=%s\n", label, addr, FormatAmount(amount))
	}

	for i, step := range s.script.Steps {
		summary, err := s.step(ctx, step)
		code := market.ErrorCode(err)
		switch {
		case err == nil && step.Expect == "":
			okColor.Fprintf(s.out, "[%02d] %-8s %s\n", i, step.Op, summary)
		case err == nil:
			failColor.Fprintf(s.out, "[%02d] %-8s succeeded, expected %s\n", i, step.Op, step.Expect)
			return fmt.Errorf("step %d (%s): expected %s, succeeded", i, step.Op, step.Expect)
		case strings.EqualFold(code, step.Expect):
			warnColor.Fprintf(s.out, "[%02d] %-8s rejected as expected: %s\n", i, step.Op, code)
		default:
			failColor.Fprintf(s.out, "[%02d] %-8s failed: %v\n", i, step.Op, err)
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	return s.report(ctx, labels)
}

func (s *simulator) marketID(label string) (ids.ID, error) {
	id, ok := s.markets[strings.ToLower(label)]
	if !ok {
		return ids.Empty, fmt.Errorf("%w: %s", market.ErrMarketNotFound, label)
	}
	return id, nil
}

func (s *simulator) step(ctx context.Context, step Step) (string, error) {
	switch strings.ToLower(step.Op) {
	case "create":
		marketID := labelID("market", step.Market)
		params := market.DeriveParams(
			accountAddress(step.Account),
			step.Description,
			s.rt.Now()+step.ResolvesIn,
			marketID,
		)
		m, err := s.rt.CreateMarket(ctx, params)
		if err != nil {
			return "", err
		}
		s.markets[strings.ToLower(step.Market)] = marketID
		return fmt.Sprintf("market=%s id=%s resolves_at=%d", step.Market, marketID, m.ResolutionTimestamp), nil

	case "deposit":
		marketID, err := s.marketID(step.Market)
		if err != nil {
			return "", err
		}
		amount, err := ParseAmount(step.Amount)
		if err != nil {
			return "", err
		}
		m, err := s.rt.DepositAndMint(ctx, marketID, accountAddress(step.Account), amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s minted %s YES + %s NO, locked=%s", step.Account, FormatAmount(amount), FormatAmount(amount), FormatAmount(m.TotalCollateralLocked)), nil

	case "resolve":
		marketID, err := s.marketID(step.Market)
		if err != nil {
			return "", err
		}
		outcome, err := storage.ParseOutcome(step.Outcome)
		if err != nil {
			return "", fmt.Errorf("%w: %w", market.ErrInvalidOutcome, err)
		}
		m, err := s.rt.Resolve(ctx, marketID, accountAddress(step.Account), outcome)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("market=%s outcome=%s at=%d", step.Market, m.Outcome, m.ResolvedAt), nil

	case "redeem":
		marketID, err := s.marketID(step.Market)
		if err != nil {
			return "", err
		}
		side, err := storage.ParseOutcome(step.Side)
		if err != nil {
			return "", fmt.Errorf("%w: %w", market.ErrInvalidOutcome, err)
		}
		amount, err := ParseAmount(step.Amount)
		if err != nil {
			return "", err
		}
		r, err := s.rt.Redeem(ctx, marketID, accountAddress(step.Account), side, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s burned %s %s, paid %s", step.Account, FormatAmount(r.Burned), side, FormatAmount(r.Payout)), nil

	case "advance":
		s.clock.Set(s.clock.Time().Add(time.Duration(step.Seconds) * time.Second))
		return fmt.Sprintf("now=%d", s.rt.Now()), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, step.Op)
	}
}

func (s *simulator) report(ctx context.Context, accounts []string) error {
	labels := make([]string, 0, len(s.markets))
	for label := range s.markets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		marketID := s.markets[label]
		if err := s.rt.CheckConservation(ctx, marketID); err != nil {
			failColor.Fprintf(s.out, "market %s: %v\n", label, err)
			return err
		}
		m, err := s.rt.Market(ctx, marketID)
		if err != nil {
			return err
		}
		status, err := s.rt.Status(ctx, marketID)
		if err != nil {
			return err
		}
		okColor.Fprintf(s.out, "market %-10s %s conserved locked=%s outcome=%s\n",
			label, status, FormatAmount(m.TotalCollateralLocked), m.Outcome)
		for _, account := range accounts {
			yes, no, err := s.rt.Position(ctx, marketID, accountAddress(account))
			if err != nil {
				return err
			}
			if yes == 0 && no == 0 {
				continue
			}
			infoColor.Fprintf(s.out, "  %-10s YES=%s NO=%s\n", account, FormatAmount(yes), FormatAmount(no))
		}
	}
	for _, account := range accounts {
		bal, err := s.rt.Balance(ctx, accountAddress(account))
		if err != nil {
			return err
		}
		infoColor.Fprintf(s.out, "balance %-10s %s\n", account, FormatAmount(bal))
	}
	s.log.Debug("simulation finished",
		zap.Int("steps", len(s.script.Steps)),
		zap.Int("markets", len(s.markets)),
	)
	return nil
}
