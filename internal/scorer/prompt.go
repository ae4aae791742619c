package scorer

import (
	"fmt"
	"strings"

	"github.com/LJTian/FinRadar/internal/news"
)

// rubric 是打分规则（1-10），平分时以对 5 年现金流模型影响更大者优先
const rubric = `Atue como um Diretor de Investimentos (CIO). Classifique as manchetes abaixo pelo valor de leitura para profissionais de finanças (IB, Asset, Wealth, Corporate Finance).

RUBRICA DE PONTUAÇÃO (1-10):

1. MUDANÇA DE FUNDAMENTO (9-10):
   - GOVERNANÇA: troca de CEO/CFO, disputas societárias, mudanças no conselho.
   - ESTRATÉGIA: pivôs de modelo de negócio, encerramento de operações relevantes, produtos disruptivos.
   - REGULATÓRIO/JURÍDICO: vitórias tributárias, concessões, novas normas setoriais (CVM/BC).
   - CAPITAL: dividendos extraordinários, reestruturação de dívida, M&A transformacional.
   - MACRO SISTÊMICO: mudanças severas em juros ou política fiscal.

2. DINÂMICA DE MERCADO (7-8):
   - Resultados trimestrais com surpresa em margens e EBITDA.
   - Juros (Fed/Copom) ou mudanças fiscais que alteram o custo de capital (WACC).
   - M&A de médio porte e emissões de dívida.

3. CONTEXTO E SETORIAL (4-6):
   - Tendências, movimentos de concorrentes menores, dados de consumo.
   - Volatilidade política ou geopolítica sem efeito direto no fluxo de caixa.

4. RUÍDO (1-3):
   - Variações diárias de preço ("Ação X sobe 2%%"), marketing, retórica sem ação prática.

Não privilegie M&A sobre Estratégia, Governança ou Regulatório. Critério de desempate: "Qual notícia mudaria mais a projeção de fluxo de caixa em um modelo de 5 anos?".

Avalie TODAS as %d manchetes, uma única vez cada.
Retorne APENAS um JSON: [{"id": int, "score": int}]

MANCHETES:
%s`

// BuildPrompt 将条目编号为 ID:index | source | title
func BuildPrompt(items []news.FeedItem) string {
	lines := make([]string, 0, len(items))
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("ID:%d | %s | %s", i, it.Source, it.Title))
	}
	return fmt.Sprintf(rubric, len(items), strings.Join(lines, "\n"))
}
