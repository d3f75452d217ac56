package cmd

import (
	"context"
	"fmt"

	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a sample plastic-bag catalog",
	Long: `Adds a handful of products covering every availability state: tracked in
stock, tracked out of stock and untracked. Skipped when the catalog already has
products unless --force is given.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Seed even when products exist")
}

func intp(v int) *int { return &v }

func pricep(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleCatalog() []orders.NewProduct {
	return []orders.NewProduct{
		{Name: "T-shirt carrier bag", Size: "30x50 cm", Color: "white", ThicknessMicrons: intp(15), PricePer1000: pricep("18.50"), Quantity: intp(25000)},
		{Name: "Heavy duty trash bag", Size: "90x110 cm", Color: "black", ThicknessMicrons: intp(40), PricePer1000: pricep("145.00"), Quantity: intp(4000)},
		{Name: "Zip lock bag", Size: "15x20 cm", Color: "clear", ThicknessMicrons: intp(60), PricePer1000: pricep("32.00"), Quantity: intp(0)},
		{Name: "Custom printed shopping bag", Size: "40x45 cm", Color: "to order", PricePer1000: pricep("210.00")},
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := seedCatalog(cmd.Context(), &orders.CatalogRepo{DB: db}, seedForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
	return nil
}

func seedCatalog(ctx context.Context, catalog orders.CatalogStore, force bool) (int, error) {
	existing, err := catalog.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 && !force {
		return 0, nil
	}
	n := 0
	for _, p := range sampleCatalog() {
		if _, err := catalog.InsertProduct(ctx, p); err != nil {
			return n, fmt.Errorf("insert %q: %w", p.Name, err)
		}
		n++
	}
	return n, nil
}
