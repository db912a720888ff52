// Command versemarketd is the admin/CLI surface for a versemarket process:
// bootstrapping the on-disk store, priming the normal-distribution lookup
// tables, seeding fixture data, and working the circuit breaker by hand when
// the automatic triggers need an operator override.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"versemarket/config"
	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/crypto"
	"versemarket/native/breaker"
	"versemarket/native/market"
	"versemarket/observability"
	"versemarket/observability/logging"
	"versemarket/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: versemarketd <init|init-tables|populate-tables|set-halt|reset-breaker> [flags]")
		return 1
	}

	logger := logging.Setup("versemarketd", "")

	emitter := observability.NewLogEmitter(logger)

	sub, rest := args[0], args[1:]
	var err error
	switch sub {
	case "init":
		err = cmdInit(rest, emitter)
	case "init-tables":
		err = cmdInitTables(rest)
	case "populate-tables":
		err = cmdPopulateTables(rest, emitter)
	case "set-halt":
		err = cmdSetHalt(rest)
	case "reset-breaker":
		err = cmdResetBreaker(rest, emitter)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		return 1
	}
	if err != nil {
		logger.Error("command failed", "subcommand", sub, "error", err.Error())
		return exitCode(err)
	}
	return 0
}

// exitCode classifies an error into spec's 0/1/2/3 scheme: success,
// precondition failure, invariant violation, arithmetic overflow.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case errIsAny(err, fperrors.ErrMathOverflow, fperrors.ErrMathUnderflow, fperrors.ErrPrecisionLoss, fperrors.ErrTablesNotInitialized):
		return 3
	case errIsAny(err,
		fperrors.ErrExceedsLeverage, fperrors.ErrExceedsPositions, fperrors.ErrTooManySteps,
		fperrors.ErrExceedsVerseLimit, fperrors.ErrChainCycle, fperrors.ErrPriceManipulation,
		fperrors.ErrFlashLoanWindow, fperrors.ErrCircuitBreakerOpen, fperrors.ErrSystemHalted,
		fperrors.ErrStalePrice, fperrors.ErrLowConfidence, fperrors.ErrIngestRateLimited,
		fperrors.ErrSolverDidNotConverge, fperrors.ErrTableNotPopulated):
		return 2
	default:
		return 1
	}
}

func errIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func openStore(cfg *config.Config) (*storage.Store, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(db), func() { db.Close() }, nil
}

func cmdInit(args []string, emitter *observability.LogEmitter) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "./versemarketd.toml", "path to the bootstrap config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	// init is the one-time bootstrap command, so from here on log to a
	// rotated file under the data dir in addition to stdout.
	logging.Setup("versemarketd", "", filepath.Join(cfg.DataDir, "versemarketd.log"))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	global, err := config.LoadGlobal(cfg.GlobalConfigPath)
	if err != nil {
		return err
	}
	params, err := global.Parameters()
	if err != nil {
		return err
	}

	engine := market.NewEngine()
	engine.SetState(store)
	engine.SetEmitter(emitter)
	if _, err := engine.InitGlobalConfig(cfg.GenesisSlot, params.Fees); err != nil {
		return err
	}
	fmt.Printf("initialized data dir %s, genesis slot %d\n", cfg.DataDir, cfg.GenesisSlot)
	return nil
}

func cmdInitTables(args []string) error {
	fs := flag.NewFlagSet("init-tables", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	tables := fixedpoint.NewTables()
	if err := tables.Populate(); err != nil {
		return err
	}
	if _, err := tables.CDF(0); err != nil {
		return err
	}
	fmt.Println("normal-distribution lookup tables populated")
	return nil
}

// fixtureFile is the YAML shape populate-tables consumes to seed verses and
// proposals into a fresh store for demos and integration testing.
type fixtureFile struct {
	Verses []struct {
		ID       string `yaml:"id"`
		ParentID string `yaml:"parent_id"`
	} `yaml:"verses"`
	Proposals []struct {
		ID             string `yaml:"id"`
		VerseID        string `yaml:"verse_id"`
		Shape          string `yaml:"shape"`
		NumOutcomes    int    `yaml:"num_outcomes"`
		SettleSlot     uint64 `yaml:"settle_slot"`
		LiquidityParam string `yaml:"liquidity_param"`
	} `yaml:"proposals"`
}

func cmdPopulateTables(args []string, emitter *observability.LogEmitter) error {
	fs := flag.NewFlagSet("populate-tables", flag.ExitOnError)
	configPath := fs.String("config", "./versemarketd.toml", "path to the bootstrap config file")
	fixturePath := fs.String("fixture", "", "path to a YAML fixture file of verses/proposals to seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fixturePath == "" {
		return fmt.Errorf("populate-tables: -fixture is required")
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		return err
	}
	var fixture fixtureFile
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := market.NewEngine()
	engine.SetState(store)
	engine.SetEmitter(emitter)

	for _, v := range fixture.Verses {
		if _, err := engine.CreateVerse(v.ID, v.ParentID); err != nil && err != fperrors.ErrAlreadyInitialized {
			return err
		}
	}
	for _, p := range fixture.Proposals {
		shape := market.ShapeBinary
		switch p.Shape {
		case "discrete":
			shape = market.ShapeDiscrete
		case "continuous_range":
			shape = market.ShapeContinuousRange
		}
		liquidity := fixedpoint.One6464()
		if p.LiquidityParam != "" {
			r, ok := new(big.Rat).SetString(p.LiquidityParam)
			if !ok {
				return fmt.Errorf("populate-tables: invalid liquidity_param %q for proposal %s", p.LiquidityParam, p.ID)
			}
			liquidity, err = fixedpoint.NewU6464FromRat(r)
			if err != nil {
				return err
			}
		}
		if _, err := engine.CreateProposal(p.ID, p.VerseID, shape, p.NumOutcomes, p.SettleSlot, liquidity); err != nil && err != fperrors.ErrAlreadyInitialized {
			return err
		}
	}
	fmt.Printf("seeded %d verses, %d proposals from %s\n", len(fixture.Verses), len(fixture.Proposals), *fixturePath)
	return nil
}

func authorityAddress(cfg *config.Config) (string, error) {
	keyBytes, err := hex.DecodeString(cfg.AuthorityKey)
	if err != nil {
		return "", err
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return "", err
	}
	return key.PubKey().Address().String(), nil
}

func cmdSetHalt(args []string) error {
	fs := flag.NewFlagSet("set-halt", flag.ExitOnError)
	configPath := fs.String("config", "./versemarketd.toml", "path to the bootstrap config file")
	halted := fs.Bool("halted", true, "desired halt state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	gc, ok, err := store.GetGlobalConfig()
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrNotInitialized
	}
	gc.HaltFlag = *halted
	if err := store.PutGlobalConfig(gc); err != nil {
		return err
	}
	fmt.Printf("halt_flag set to %v\n", *halted)
	return nil
}

func cmdResetBreaker(args []string, emitter *observability.LogEmitter) error {
	fs := flag.NewFlagSet("reset-breaker", flag.ExitOnError)
	configPath := fs.String("config", "./versemarketd.toml", "path to the bootstrap config file")
	currentSlot := fs.Uint64("current-slot", 0, "the current slot, for the emergency genesis window check")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	gc, ok, err := store.GetGlobalConfig()
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrNotInitialized
	}

	addr, err := authorityAddress(cfg)
	if err != nil {
		return err
	}

	eng := breaker.NewEngine()
	eng.SetMarket(store)
	eng.SetAuthority(addr)
	eng.SetEmitter(emitter)
	if err := eng.Reset(addr, *currentSlot, gc.GenesisSlot); err != nil {
		return err
	}
	fmt.Println("circuit breaker reset")
	return nil
}
