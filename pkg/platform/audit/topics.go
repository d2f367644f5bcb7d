package audit

// TopicFor returns the Kafka topic carrying events of the given category.
// The prefix comes from configuration so environments can namespace topics.
func TopicFor(prefix string, category EventCategory) string {
	return prefix + "." + string(category)
}

// Topics returns the full topic set for a prefix, one per category.
func Topics(prefix string) []string {
	return []string{
		TopicFor(prefix, CategoryClinical),
		TopicFor(prefix, CategorySecurity),
		TopicFor(prefix, CategoryOperations),
	}
}
