package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ecomdash/internal/predict"
	"github.com/KaramelBytes/ecomdash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	prdReviewCount  int
	prdBrandEncoded int
	prdCategories   string
	prdModel        string
	prdStrict       bool
	prdJSON         bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a product rating from review count, encoded brand and categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelPath, strict := prdModel, prdStrict
		if c, err := currentConfig(); err == nil {
			if !cmd.Flags().Changed("model") {
				modelPath = c.ModelPath
			}
			if !cmd.Flags().Changed("strict-schema") {
				strict = c.StrictSchema
			}
		}
		svc := predict.NewService(modelPath, strict)
		in := predict.Input{ReviewCount: prdReviewCount, BrandEncoded: prdBrandEncoded, Categories: prdCategories}
		res, err := svc.Predict(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("could not predict (%s): %w", predict.Kind(err), err)
		}
		out := cmd.OutOrStdout()
		if prdJSON {
			b, err := utils.PrettyJSON(map[string]any{"rating": res.Rating, "raw": res.Raw, "dropped": res.Dropped})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		for _, d := range res.Dropped {
			fmt.Fprintf(out, "⚠ Ignored category unknown to the model: %s\n", d)
		}
		fmt.Fprintf(out, "✓ Predicted Rating: %.2f\n", res.Rating)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	def := predict.DefaultInput()
	predictCmd.Flags().IntVar(&prdReviewCount, "review-count", def.ReviewCount, "number of reviews")
	predictCmd.Flags().IntVar(&prdBrandEncoded, "brand-encoded", def.BrandEncoded, "label-encoded brand id")
	predictCmd.Flags().StringVar(&prdCategories, "categories", def.Categories, "comma-separated categories")
	predictCmd.Flags().StringVar(&prdModel, "model", "xgb_model.json", "model artifact path (overrides config)")
	predictCmd.Flags().BoolVar(&prdStrict, "strict-schema", true, "reject categories unknown to the model (overrides config)")
	predictCmd.Flags().BoolVar(&prdJSON, "json", false, "print the result as JSON")
}
