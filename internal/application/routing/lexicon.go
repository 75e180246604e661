package routing

import "citementor-api/internal/domain/entity"

// lexicons 各书架的关键词词表，命中计分用
// 词条统一小写，匹配时对查询做小写化处理
var lexicons = map[entity.Genre][]string{
	entity.GenreWealth: {
		"money", "wealth", "invest", "investment", "investing", "saving", "savings",
		"income", "salary", "budget", "debt", "compound", "interest", "rich",
		"financial", "finance", "retirement", "asset", "assets", "stock", "stocks",
		"frugal", "spend", "spending", "earn", "earning", "fortune", "capital",
	},
	entity.GenreRelationships: {
		"relationship", "relationships", "friend", "friends", "friendship",
		"partner", "marriage", "spouse", "love", "family", "parent", "parents",
		"conflict", "argue", "argument", "trust", "communicate", "communication",
		"empathy", "listen", "listening", "boundaries", "colleague", "coworker",
		"influence", "persuade", "connection",
	},
	entity.GenrePhilosophy: {
		"meaning", "purpose", "philosophy", "stoic", "stoicism", "virtue",
		"ethics", "ethical", "wisdom", "mortality", "death", "happiness",
		"suffering", "mind", "consciousness", "existence", "truth", "justice",
		"fate", "destiny", "soul", "contemplate", "reflection", "anxiety", "fear",
	},
}

// seedTexts 各书架的主题描述，用于构建路由画像向量
var seedTexts = map[entity.Genre]string{
	entity.GenreWealth:        "Questions about money, personal finance, investing, saving, building wealth, income, budgeting and financial independence.",
	entity.GenreRelationships: "Questions about relationships, friendship, marriage, family, communication, trust, conflict resolution and social connection.",
	entity.GenrePhilosophy:    "Questions about meaning, purpose, ethics, wisdom, mortality, happiness, virtue and how to live a good life.",
}
