package handlers

// AppHandlers bundles every constructed handler for route registration.
type AppHandlers struct {
	Delivery *DeliveryHandler
	Images   *ImageHandler
	Tags     *TagHandler
}
