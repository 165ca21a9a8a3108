package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/licindex/licindex/internal/output"
	"github.com/licindex/licindex/internal/search"
)

// searchOptions holds the CLI flags for search.
type searchOptions struct {
	objeto          string
	agencia         string
	pais            string
	rubro           string
	tags            []int64
	filterMode      string
	aperturaDesde   string
	aperturaHasta   string
	incluirVencidos bool
	soloVigentes    bool
	page            int
	pageSize        int
	format          string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search indexed publications",
		Long: `Search indexed publications with free text and scoped filters.

Free text matches within objeto, agencia, oficina and referencia.
Filters narrow by country, tag, opening-date window and validity.
Hidden publications are never returned.

Examples:
  licindex search "mantenimiento rutas"
  licindex search hospital --pais 7 --solo-vigentes
  licindex search --agencia vialidad --apertura-desde 01/03/2026
  licindex search --tag 12 --tag 31 --filter-mode user_tags --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.objeto, "objeto", "", "Filter within the publication object")
	cmd.Flags().StringVar(&opts.agencia, "agencia", "", "Filter within the agency name")
	cmd.Flags().StringVar(&opts.pais, "pais", "", "Country id or exact name ('all' disables)")
	cmd.Flags().StringVar(&opts.rubro, "rubro", "", "Tag id to filter by")
	cmd.Flags().Int64SliceVar(&opts.tags, "tag", nil, "User tag id (repeatable, needs --filter-mode user_tags)")
	cmd.Flags().StringVar(&opts.filterMode, "filter-mode", "", "Filter mode (user_tags enables --tag)")
	cmd.Flags().StringVar(&opts.aperturaDesde, "apertura-desde", "", "Opening date lower bound (dd/mm/yyyy)")
	cmd.Flags().StringVar(&opts.aperturaHasta, "apertura-hasta", "", "Opening date upper bound (dd/mm/yyyy)")
	cmd.Flags().BoolVar(&opts.incluirVencidos, "incluir-vencidos", false, "Include expired publications")
	cmd.Flags().BoolVar(&opts.soloVigentes, "solo-vigentes", false, "Only currently valid publications")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Result page, 1-based")
	cmd.Flags().IntVarP(&opts.pageSize, "page-size", "n", 0, "Results per page (0 = configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, terms string, opts searchOptions) error {
	svc, _, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	params := search.Params{
		Search:     terms,
		Objeto:     opts.objeto,
		Agencia:    opts.agencia,
		Pais:       opts.pais,
		Rubro:      opts.rubro,
		UserTagIDs: opts.tags,
		FilterMode: opts.filterMode,
		AperturaFr: opts.aperturaDesde,
		AperturaTo: opts.aperturaHasta,
		Page:       opts.page,
		PageSize:   opts.pageSize,
	}
	if opts.incluirVencidos {
		params.IncluirVencidos = "1"
	} else {
		params.IncluirVencidos = "0"
	}
	if opts.soloVigentes {
		params.SoloVigentes = "1"
	}

	page, err := svc.Engine().Search(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	out := output.New(cmd.OutOrStdout())
	if len(page.Publicaciones) == 0 {
		out.Status("", "no publications found")
		return nil
	}

	out.Statusf("", "%d publications (page %d of %d):", page.Total, page.Pagina, page.Paginas)
	out.Newline()
	for _, doc := range page.Publicaciones {
		out.Statusf("", "%d  %s", doc.ID(), docField(doc, "objeto"))
		if agencia := docField(doc, "agencia"); agencia != "" {
			out.Status("", "   "+agencia)
		}
		if apertura := docField(doc, "apertura"); apertura != "" {
			out.Status("", "   apertura: "+apertura)
		}
		out.Newline()
	}
	return nil
}

// docField reads a string field from a sparse document; absent keys
// render empty.
func docField(doc map[string]any, key string) string {
	v, ok := doc[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}
