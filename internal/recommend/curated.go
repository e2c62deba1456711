package recommend

import "math/rand/v2"

// CuratedPrompt is a ready-made collection request shown on the landing page.
type CuratedPrompt struct {
	Title  string `json:"title" yaml:"title"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// CuratedPrompts target works well represented in the public-domain catalog.
var CuratedPrompts = []CuratedPrompt{
	{
		Title:  "Capodopere literare universale",
		Prompt: "cele mai importante 15 capodopere literare universale disponibile în Project Gutenberg de Jane Austen, Charles Dickens, Mark Twain, Fyodor Dostoyevsky, Leo Tolstoy, și Victor Hugo",
	},
	{
		Title:  "Aventuri extraordinare",
		Prompt: "15 romane clasice de aventură din Gutenberg de Jules Verne, H.G. Wells, Robert Louis Stevenson și Alexandre Dumas",
	},
	{
		Title:  "Esențiale Literatura Victoriană",
		Prompt: "15 cărți esențiale din perioada victoriană de Charles Dickens, Jane Austen, Charlotte Brontë, William Makepeace Thackeray și George Eliot",
	},
	{
		Title:  "Romane de dragoste clasice",
		Prompt: "15 cele mai frumoase romane de dragoste clasice din Gutenberg de Jane Austen, Charlotte Brontë, Emily Brontë și Elizabeth Gaskell",
	},
	{
		Title:  "Filosofie fundamentală",
		Prompt: "15 lucrări fundamentale de filosofie din Gutenberg de Platon, Aristotel, Kant, Nietzsche, John Stuart Mill și Seneca",
	},
	{
		Title:  "Mitologie și legende",
		Prompt: "15 cărți clasice despre mitologie și legende din Gutenberg, incluzând Homer, Virgil, Ovidiu și Thomas Bulfinch",
	},
	{
		Title:  "Shakespeare și teatru clasic",
		Prompt: "15 cele mai importante opere dramatice de William Shakespeare în Gutenberg",
	},
	{
		Title:  "Poezie clasică de referință",
		Prompt: "15 cele mai importante colecții de poezii clasice din Gutenberg, de Walt Whitman, Emily Dickinson, John Keats, Lord Byron și William Wordsworth",
	},
	{
		Title:  "Clasici americani",
		Prompt: "15 romane americane clasice din Gutenberg de Mark Twain, Herman Melville, Nathaniel Hawthorne, Jack London și Edgar Allan Poe",
	},
	{
		Title:  "Mari biografii și memorii",
		Prompt: "15 biografii și autobiografii clasice din Gutenberg precum Autobiografia lui Benjamin Franklin, Viețile lui Plutarh și Memoriile generalului Grant",
	},
	{
		Title:  "Mistere și romane polițiste",
		Prompt: "15 cărți clasice de detectivi și mister din Gutenberg de Arthur Conan Doyle, Wilkie Collins, Edgar Allan Poe și Gaston Leroux",
	},
	{
		Title:  "Științe și explorare",
		Prompt: "15 cărți clasice despre știință și explorare din Gutenberg de Charles Darwin, Alexander von Humboldt, și Thomas Henry Huxley",
	},
	{
		Title:  "Science Fiction pionier",
		Prompt: "15 romane science fiction clasice din Gutenberg de H.G. Wells, Jules Verne, Mary Shelley și Edward Bellamy",
	},
	{
		Title:  "Clasici ruși fundamentali",
		Prompt: "15 opere esențiale din literatura rusă clasică din Gutenberg de Dostoievski, Tolstoi, Cehov, Gogol și Turgenev",
	},
	{
		Title:  "Călătorii și explorări",
		Prompt: "15 cărți clasice despre explorări și călătorii din Gutenberg precum Robinson Crusoe, Călătoriile lui Gulliver, și jurnalele căpitanului Cook",
	},
	{
		Title:  "Literatura pentru copii",
		Prompt: "15 cărți clasice pentru copii din Gutenberg de Lewis Carroll, L. Frank Baum, Brothers Grimm, Hans Christian Andersen și Carlo Collodi",
	},
	{
		Title:  "Opere filosofice antice",
		Prompt: "15 opere filosofice antice din Gutenberg de Platon, Aristotel, Epictet, Seneca, Marcus Aurelius și Lucretius",
	},
	{
		Title:  "Romane gotice și de groază",
		Prompt: "15 romane gotice și de groază clasice din Gutenberg de Mary Shelley, Bram Stoker, Edgar Allan Poe, Ann Radcliffe și Matthew Gregory Lewis",
	},
}

// PickCurated returns n prompts sampled without replacement from
// CuratedPrompts. n <= 0 or larger than the list returns all of them,
// shuffled.
func PickCurated(rng *rand.Rand, n int) []CuratedPrompt {
	out := make([]CuratedPrompt, len(CuratedPrompts))
	copy(out, CuratedPrompts)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
