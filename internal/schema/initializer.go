package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pgblast/internal/script"
)

// seedConcurrency bounds how many branches are filled at once.
const seedConcurrency = 8

// Initializer creates the pgbench table family and seeds it at the given
// scale factor: one branch row, 10 tellers, and 100,000 accounts per
// branch. It is invoked by the init subcommand before any benchmark run;
// the run itself performs no DDL.
type Initializer struct {
	pool   *pgxpool.Pool
	prefix string
	scale  int
}

func New(pool *pgxpool.Pool, prefix string, scale int) *Initializer {
	return &Initializer{pool: pool, prefix: prefix, scale: scale}
}

// DDL returns the statements that drop and recreate the table family.
func DDL(prefix string) []string {
	return []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s_history`, prefix),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s_accounts`, prefix),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s_tellers`, prefix),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s_branches`, prefix),
		fmt.Sprintf(`CREATE TABLE %s_branches (
			bid integer PRIMARY KEY,
			bbalance integer NOT NULL,
			filler character(88)
		)`, prefix),
		fmt.Sprintf(`CREATE TABLE %s_tellers (
			tid integer PRIMARY KEY,
			bid integer NOT NULL,
			tbalance integer NOT NULL,
			filler character(84)
		)`, prefix),
		fmt.Sprintf(`CREATE TABLE %s_accounts (
			aid integer PRIMARY KEY,
			bid integer NOT NULL,
			abalance integer NOT NULL,
			filler character(84)
		)`, prefix),
		fmt.Sprintf(`CREATE TABLE %s_history (
			tid integer,
			bid integer,
			aid integer,
			delta integer,
			mtime timestamp,
			filler character(22)
		)`, prefix),
	}
}

// BranchFill returns the statements seeding one branch; the branch id is
// bound as $1.
func BranchFill(prefix string) []string {
	return []string{
		fmt.Sprintf(`INSERT INTO %s_branches (bid, bbalance) VALUES ($1, 0)`, prefix),
		fmt.Sprintf(`INSERT INTO %s_tellers (tid, bid, tbalance)
			SELECT ($1 - 1) * %d + g, $1, 0 FROM generate_series(1, %d) AS g`,
			prefix, script.TellersPerBranch, script.TellersPerBranch),
		fmt.Sprintf(`INSERT INTO %s_accounts (aid, bid, abalance)
			SELECT ($1 - 1) * %d + g, $1, 0 FROM generate_series(1, %d) AS g`,
			prefix, script.AccountsPerBranch, script.AccountsPerBranch),
	}
}

// Run recreates the schema and seeds every branch, filling branches
// concurrently.
func (i *Initializer) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{"prefix": i.prefix, "scale": i.scale}).Info("creating tables")
	for _, stmt := range DDL(i.prefix) {
		if _, err := i.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}

	logrus.Infof("seeding %d branches", i.scale)
	fill := BranchFill(i.prefix)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for bid := 1; bid <= i.scale; bid++ {
		g.Go(func() error {
			for _, stmt := range fill {
				if _, err := i.pool.Exec(ctx, stmt, bid); err != nil {
					return fmt.Errorf("seeding branch %d: %w", bid, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logrus.Info("initialization complete")
	return nil
}
