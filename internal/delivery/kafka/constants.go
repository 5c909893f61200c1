package kafka

const (
	TopicQueueJoined = "queue.joined"
	TopicQueueLeft   = "queue.left"

	TopicAdmissionGranted   = "admission.granted"
	TopicAdmissionExpired   = "admission.expired"
	TopicAdmissionCompleted = "admission.completed"

	TopicPurchaseCompleted = "purchase.completed"

	TopicInventoryRestock = "inventory.restock"
)

const (
	LeftReasonUser      = "user_left"
	LeftReasonAbandoned = "abandoned"
)
