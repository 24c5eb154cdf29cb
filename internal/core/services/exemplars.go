package services

import "github.com/custodia-labs/corpora-cli/internal/core/domain"

// DefaultExemplars is the built-in exemplar corpus for namespace routing.
// Config may replace it per namespace; these defaults cover the corpus the
// knowledge base ships with.
func DefaultExemplars() map[domain.Namespace][]string {
	return map[domain.Namespace][]string{
		domain.NamespaceTechnical: {
			"How do I reduce model size using quantization-aware training?",
			"What are the tradeoffs between structured pruning and sparsity?",
			"How do I architect a production RAG pipeline for financial documents?",
			"What indexing strategy should I use with FAISS for low-latency retrieval?",
			"Design an LLM agent with tool calling for document Q&A",
			"What evaluation metrics should I use for retrieval quality?",
			"How do I improve landmark detection accuracy with Vision Transformers?",
			"Explain semantic segmentation pipelines for scene understanding",
			"How do I design a high-throughput SQL-backed data service?",
			"What's the best Kafka architecture for real-time analytics?",
			"Explain distributed computing with MPI and SLURM on HPC nodes",
			"How do I deploy containerized ML inference with Kubernetes autoscaling?",
			"How do I productionize a research model into a latency-sensitive pipeline?",
			"Explain PEFT fine-tuning strategies for constrained reasoning tasks",
		},
		domain.NamespaceNontechnical: {
			"debate speech argument rebuttal personal opinion",
			"hobby interest reading books travel values beliefs philosophy",
			"non-work life reflection essay topic discussion",
			"cooking recipes dance contemporary western ballet",
		},
	}
}
